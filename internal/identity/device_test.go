package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceLabel(t *testing.T) {
	t.Run("empty user agent returns unknown device", func(t *testing.T) {
		assert.Equal(t, "Unknown Device", DeviceLabel("  "))
	})

	t.Run("chrome on desktop includes browser and OS", func(t *testing.T) {
		label := DeviceLabel("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		assert.Contains(t, label, "Chrome")
		assert.Contains(t, label, " on ")
		assert.NotContains(t, label, "  ")
	})

	t.Run("safari on iphone includes platform", func(t *testing.T) {
		label := DeviceLabel("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
		assert.Contains(t, label, "iPhone")
	})

	t.Run("firefox on linux includes browser and OS", func(t *testing.T) {
		label := DeviceLabel("Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
		assert.Contains(t, label, "Firefox")
		assert.Contains(t, label, "Linux")
	})
}
