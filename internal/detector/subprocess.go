package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// DefaultIdleTimeout is how long the helper process may sit unused before
// it is stopped. It is restarted on the next Detect.
const DefaultIdleTimeout = 30 * time.Second

// SubprocessDetector implements Detector by delegating to an external
// detection service over stdin/stdout. Each request is a 4-byte big-endian
// length followed by a JPEG; each response is one JSON line.
type SubprocessDetector struct {
	command     []string
	idleTimeout time.Duration
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	stdout      *bufio.Reader
	mu          sync.Mutex
	started     bool
	idleTimer   *time.Timer
}

// NewSubprocessDetector creates a detector that runs command (program and
// arguments). The process is started lazily on first detection.
func NewSubprocessDetector(command []string, idleTimeout time.Duration) (*SubprocessDetector, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, fmt.Errorf("detector command is empty")
	}
	if _, err := exec.LookPath(command[0]); err != nil {
		return nil, fmt.Errorf("find detector command: %w", err)
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}

	return &SubprocessDetector{
		command:     command,
		idleTimeout: idleTimeout,
	}, nil
}

// Detect sends the frame to the helper process and parses its answer.
func (d *SubprocessDetector) Detect(frame *gocv.Mat) ([]Detection, error) {
	// Encode frame as JPEG
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	line, err := d.roundTrip(buf.GetBytes())
	if err != nil {
		// A broken pipe leaves the protocol out of sync; start over next time.
		d.shutdown()
		return nil, err
	}

	detections, err := parseResponse(line)
	if err != nil {
		return nil, err
	}

	d.resetIdleTimer()
	return detections, nil
}

func (d *SubprocessDetector) roundTrip(data []byte) ([]byte, error) {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return line, nil
}

// Close shuts down the helper process.
func (d *SubprocessDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *SubprocessDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	d.cmd = exec.Command(d.command[0], d.command[1:]...)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Capture stderr for debugging
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start detector service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	return nil
}

func (d *SubprocessDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *SubprocessDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(d.idleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

// jsonDetection is one entry of the helper's response line.
type jsonDetection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        [4]int  `json:"box"` // x, y, w, h
}

func parseResponse(line []byte) ([]Detection, error) {
	var response struct {
		Detections []jsonDetection `json:"detections"`
		Error      string          `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("detector service: %s", response.Error)
	}

	result := make([]Detection, 0, len(response.Detections))
	for _, jd := range response.Detections {
		x, y, w, h := jd.Box[0], jd.Box[1], jd.Box[2], jd.Box[3]
		result = append(result, Detection{
			Category:   jd.Label,
			Confidence: jd.Confidence,
			Box:        image.Rect(x, y, x+w, y+h),
		})
	}
	return result, nil
}
