package pairing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/skip2/go-qrcode"

	"github.com/Niro-Programe/Fergando-MD/internal/core/service"
)

const rule = "==========================================="

// Presenter writes pairing secrets to a terminal.
type Presenter struct {
	w      io.Writer
	logger *slog.Logger

	// pngPath, when set, receives a PNG copy of each QR code.
	pngPath string
	pngSize int

	mu sync.Mutex
}

var _ service.PairingPresenter = (*Presenter)(nil)

// Option configures a Presenter.
type Option func(*Presenter)

// WithPNG also writes each QR code to path as a size x size PNG.
func WithPNG(path string, size int) Option {
	return func(p *Presenter) {
		p.pngPath = path
		p.pngSize = size
	}
}

// NewPresenter returns a presenter writing to w.
func NewPresenter(w io.Writer, logger *slog.Logger, opts ...Option) *Presenter {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Presenter{w: w, logger: logger.With("component", "pairing"), pngSize: 256}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PresentQR renders payload as a half-block QR code. Each new payload
// replaces the previous one, so every call prints a fresh code.
func (p *Presenter) PresentQR(ctx context.Context, payload string) error {
	if payload == "" {
		return errors.New("pairing: empty qr payload")
	}
	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("pairing: encode qr: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, rule)
	fmt.Fprintln(p.w, "  Scan with WhatsApp > Linked devices")
	fmt.Fprintln(p.w, rule)
	fmt.Fprint(p.w, qr.ToSmallString(false))
	fmt.Fprintln(p.w, rule)

	if p.pngPath != "" {
		if err := qr.WriteFile(p.pngSize, p.pngPath); err != nil {
			p.logger.Warn("qr png not written", "path", p.pngPath, "error", err)
		} else {
			p.logger.Info("qr code saved", "path", p.pngPath)
		}
	}
	p.logger.Info("waiting for qr scan")
	return nil
}

// PresentCode prints a linking code grouped for reading aloud.
func (p *Presenter) PresentCode(ctx context.Context, code string) error {
	if code == "" {
		return errors.New("pairing: empty code")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, rule)
	fmt.Fprintln(p.w, "  Pairing code")
	fmt.Fprintln(p.w, rule)
	fmt.Fprintf(p.w, "\n      %s\n\n", FormatCode(code))
	fmt.Fprintln(p.w, "  WhatsApp > Linked devices > Link with phone number")
	fmt.Fprintln(p.w, rule)

	p.logger.Info("waiting for pairing code entry")
	return nil
}

// FormatCode upper-cases code and splits it into groups of four:
// "abcd1234" -> "ABCD-1234". Codes that already contain a dash are only
// upper-cased.
func FormatCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if strings.Contains(code, "-") || len(code) <= 4 {
		return code
	}
	var b strings.Builder
	for i, r := range code {
		if i > 0 && i%4 == 0 {
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return b.String()
}
