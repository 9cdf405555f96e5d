package config

import "fmt"

// HarnessConfig holds configuration for the browser dev harness that drives
// the engine pages through a local Chromium.
type HarnessConfig struct {
	CDPAddress string
	CDPPort    int
	BridgeURL  string
	Headless   bool
}

// LoadHarness reads harness configuration from environment variables.
func LoadHarness() (*HarnessConfig, error) {
	return &HarnessConfig{
		CDPAddress: getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:    getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		BridgeURL:  getEnvOrDefault("HARNESS_BRIDGE_URL", "http://127.0.0.1:8189"),
		Headless:   getEnvBoolOrDefault("HARNESS_HEADLESS", true),
	}, nil
}

// CDPURL returns the full CDP HTTP endpoint used by the chromedp remote
// allocator.
func (c *HarnessConfig) CDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}
