package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"time"

	"github.com/dunamismax/mkpdf/internal/domain"
	"github.com/signintech/gopdf"
)

const DefaultDPI = 300

var ErrNoPages = errors.New("document has no pages")

type Options struct {
	// DPI maps image pixels to page points (72 per inch). Zero means
	// DefaultDPI.
	DPI      float64
	Producer string
}

// Document collects JPEG pages and writes them as one PDF, one image per
// page filling the whole page.
type Document struct {
	gp       *gopdf.GoPdf
	dpi      float64
	title    string
	producer string
	pages    int
}

func New(opts Options) *Document {
	dpi := opts.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	gp := &gopdf.GoPdf{}
	gp.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4, Unit: gopdf.UnitPT})

	return &Document{
		gp:       gp,
		dpi:      dpi,
		producer: opts.Producer,
	}
}

func (d *Document) SetTitle(title string) {
	d.title = title
}

func (d *Document) Pages() int {
	return d.pages
}

// AddPage appends a page showing the JPEG stream data. EXIF segments are
// removed before the stream is embedded.
func (d *Document) AddPage(data []byte) error {
	stripped, err := StripEXIF(data)
	if err != nil {
		return err
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(stripped))
	if err != nil {
		return fmt.Errorf("%w: page %d: %v", domain.ErrDecode, d.pages+1, err)
	}

	holder, err := gopdf.ImageHolderByBytes(stripped)
	if err != nil {
		return fmt.Errorf("%w: page %d: %v", domain.ErrEncode, d.pages+1, err)
	}

	rect := d.pageRect(cfg.Width, cfg.Height)
	d.gp.AddPageWithOption(gopdf.PageOption{PageSize: rect})
	if err := d.gp.ImageByHolder(holder, 0, 0, rect); err != nil {
		return fmt.Errorf("%w: page %d: %v", domain.ErrEncode, d.pages+1, err)
	}

	d.pages++
	return nil
}

func (d *Document) pageRect(width, height int) *gopdf.Rect {
	return &gopdf.Rect{
		W: float64(width) * 72 / d.dpi,
		H: float64(height) * 72 / d.dpi,
	}
}

// WriteTo writes the finished PDF to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	if d.pages == 0 {
		return 0, fmt.Errorf("%w: %w", domain.ErrEncode, ErrNoPages)
	}

	d.gp.SetInfo(gopdf.PdfInfo{
		Title:        d.title,
		Creator:      d.producer,
		Producer:     d.producer,
		CreationDate: time.Now(),
	})

	n, err := d.gp.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("%w: pdf: %v", domain.ErrEncode, err)
	}
	return n, nil
}
