package app

import (
	"fmt"
	"image"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/forcetorque/internal/config"
	"github.com/relabs-tech/forcetorque/internal/publish"
	"github.com/relabs-tech/forcetorque/internal/wrench"
)

const (
	oledWidth  = 128
	oledHeight = 64
	lineHeight = 13
	// Readings older than this are shown as stale.
	staleAfter = 2 * time.Second
)

// displayData holds the latest wrench for the OLED.
type displayData struct {
	mu     sync.RWMutex
	wrench wrench.Wrench
	have   bool
	at     time.Time
}

func (d *displayData) set(w wrench.Wrench, at time.Time) {
	d.mu.Lock()
	d.wrench, d.have, d.at = w, true, at
	d.mu.Unlock()
}

func (d *displayData) snapshot() (wrench.Wrench, bool, time.Time) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wrench, d.have, d.at
}

// RunDisplay shows the latest published wrench on an SSD1306 OLED.
func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Info().Str("bus", bus.String()).Msg("display: initialized")

	if err := dev.Draw(dev.Bounds(), renderLines("Force/Torque", "Waiting for", "DAQ..."), image.Point{}); err != nil {
		log.Warn().Err(err).Msg("display: splash")
	}

	data := &displayData{}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)

	topic := publish.MQTTTopic(cfg.PublishKey)
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		w, err := wrench.Decode(msg.Payload())
		if err != nil {
			log.Warn().Err(err).Msg("display: bad payload")
			return
		}
		data.set(w, time.Now())
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Info().Str("topic", topic).Msg("display: subscribed")

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	done := make(chan struct{})
	release := stopOnSignal(func() { close(done) })
	defer release()

	for {
		select {
		case <-done:
			return dev.Halt()
		case now := <-ticker.C:
			w, have, at := data.snapshot()
			img := renderWrench(w, have, have && now.Sub(at) > staleAfter)
			if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
				log.Warn().Err(err).Msg("display: draw")
			}
		}
	}
}

// renderWrench lays the six channels out on four text lines.
func renderWrench(w wrench.Wrench, have, stale bool) *image1bit.VerticalLSB {
	if !have {
		return renderLines("Force/Torque", "Waiting...")
	}
	header := "F[N]  T[Nm]"
	if stale {
		header = "F[N]  T[Nm] STALE"
	}
	return renderLines(
		header,
		fmt.Sprintf("%6.1f %7.3f", w[wrench.Fx], w[wrench.Tx]),
		fmt.Sprintf("%6.1f %7.3f", w[wrench.Fy], w[wrench.Ty]),
		fmt.Sprintf("%6.1f %7.3f", w[wrench.Fz], w[wrench.Tz]),
	)
}

func renderLines(lines ...string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, oledWidth, oledHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, lineHeight*(i+1))
		drawer.DrawBytes([]byte(line))
	}
	return img
}
