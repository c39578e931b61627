package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// device describes the compute backend a local transcription run will
// use, detected once per process and then reused.
type device struct {
	kind      string // "accelerated" or "cpu"
	precision string // "float16" on an accelerator, "int8" on CPU
}

// LocalProvider shells out to a local whisper-compatible CLI binary.
// Device detection (is there a usable GPU?) happens lazily, once, the
// first time Transcribe is called — not at construction — since building
// a provider should never itself touch the system.
type LocalProvider struct {
	binary string

	once   sync.Once
	device device
}

// NewLocalProvider returns a provider that invokes binary (or "whisper" if
// empty, resolved via PATH) for each transcription.
func NewLocalProvider(binary string) *LocalProvider {
	if binary == "" {
		binary = "whisper"
	}
	return &LocalProvider{binary: binary}
}

func (p *LocalProvider) Name() string { return "local" }

// detectDevice decides whether an accelerator is available, preferring
// the cheap environment-variable check before shelling out to nvidia-smi.
// CUDA_VISIBLE_DEVICES set to anything other than "" or "-1" signals the
// caller already arranged GPU visibility for this process.
func detectDevice() device {
	if v, ok := os.LookupEnv("CUDA_VISIBLE_DEVICES"); ok && v != "" && v != "-1" {
		return device{kind: "accelerated", precision: "float16"}
	}

	if path, err := exec.LookPath("nvidia-smi"); err == nil {
		cmd := exec.Command(path, "-L")
		var out bytes.Buffer
		cmd.Stdout = &out
		if err := cmd.Run(); err == nil && strings.Contains(out.String(), "GPU") {
			return device{kind: "accelerated", precision: "float16"}
		}
	}

	return device{kind: "cpu", precision: "int8"}
}

func (p *LocalProvider) ensureDevice() device {
	p.once.Do(func() {
		p.device = detectDevice()
	})
	return p.device
}

// Transcribe invokes the local binary against path, selecting its compute
// device and numeric precision once per process lifetime.
func (p *LocalProvider) Transcribe(ctx context.Context, path string) (string, error) {
	dev := p.ensureDevice()

	cmd := exec.CommandContext(ctx, p.binary,
		"--device", dev.kind,
		"--compute-type", dev.precision,
		"--output-format", "txt",
		"--output-dir", "-",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("local transcription (%s/%s): %w: %s", dev.kind, dev.precision, err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}
