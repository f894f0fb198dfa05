// Package indicator shows link activity on a short WS2812 strip, or on the
// console when no SPI port is available.
package indicator

import (
	"image"
	"image/color"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/funtimes-ti99kb/internal/matrix"
)

// Freq is the SPI clock for nrzled: three SPI bits per NRZ bit at 800 kHz.
const Freq = 2500 * physic.KiloHertz

var (
	Latched = color.NRGBA{R: 0xFF, G: 0x80, A: 0xFF}
	Sent    = color.NRGBA{G: 0xFF, A: 0xFF}
	Sync    = color.NRGBA{B: 0xFF, A: 0xFF}
)

// Indicator is a firmware.Observer. Each latched key lights the next pixel,
// which turns green once the byte is on the wire.
type Indicator struct {
	Log zerolog.Logger

	drawer display.Drawer
	port   spi.PortCloser
	img    *image.NRGBA
	cursor int
	failed bool
}

func New(d display.Drawer, pixels int) *Indicator {
	if pixels < 1 {
		pixels = 1
	}
	return &Indicator{
		Log:    zerolog.Nop(),
		drawer: d,
		img:    image.NewNRGBA(image.Rect(0, 0, pixels, 1)),
	}
}

// Open drives pixels LEDs through nrzled on the named SPI port ("" for the
// first one). Without a port it falls back to a console strip.
func Open(dev string, pixels int, log zerolog.Logger) (*Indicator, error) {
	p, err := spireg.Open(dev)
	if err != nil {
		log.Warn().Err(err).
			Str("driver", "spi").
			Str("dev", dev).
			Msg("SPI open failed; indicator falls back to console")
		ind := New(screen.New(pixels), pixels)
		ind.Log = log
		return ind, nil
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{NumPixels: pixels, Channels: 3, Freq: Freq})
	if err != nil {
		p.Close()
		return nil, err
	}
	ind := New(d, pixels)
	ind.Log = log
	ind.port = p
	return ind, nil
}

// Driver names what the strip is drawn on: the nrzled device or "console".
func (ind *Indicator) Driver() string {
	if ind.port == nil {
		return "console"
	}
	return ind.drawer.String()
}

func (ind *Indicator) KeyLatched(hit matrix.KeyHit) {
	ind.cursor = (ind.cursor + 1) % ind.img.Rect.Dx()
	ind.img.SetNRGBA(ind.cursor, 0, Latched)
	ind.draw()
}

func (ind *Indicator) KeySent(b byte) {
	c := Sent
	if b == 0 {
		c = Sync
	}
	ind.img.SetNRGBA(ind.cursor, 0, c)
	ind.draw()
}

// Pixel returns the colour currently shown at x.
func (ind *Indicator) Pixel(x int) color.NRGBA {
	return ind.img.NRGBAAt(x, 0)
}

func (ind *Indicator) draw() {
	if ind.failed {
		return
	}
	if err := ind.drawer.Draw(ind.drawer.Bounds(), ind.img, image.Point{}); err != nil {
		// stays dark rather than log on every key
		ind.failed = true
		ind.Log.Error().Err(err).Msg("indicator draw failed; disabled")
	}
}

// Close blanks the strip and releases the SPI port, if one was opened.
func (ind *Indicator) Close() error {
	err := ind.drawer.Halt()
	if ind.port != nil {
		if cerr := ind.port.Close(); err == nil {
			err = cerr
		}
		ind.port = nil
	}
	return err
}
