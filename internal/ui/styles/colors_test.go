// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestStatusIndicatorsAreASCII(t *testing.T) {
	indicators := []string{
		StatusIndicators.Success,
		StatusIndicators.Error,
		StatusIndicators.Warning,
		StatusIndicators.Info,
		StatusIndicators.Active,
	}

	for _, ind := range indicators {
		if ind == "" {
			t.Error("indicator must not be empty")
		}
		for _, r := range ind {
			if r > 127 {
				t.Errorf("indicator %q contains non-ASCII rune %q", ind, r)
			}
		}
	}
}

func TestRenderHelpersIncludeIndicator(t *testing.T) {
	cases := []struct {
		name string
		fn   func(string) string
		want string
	}{
		{"success", RenderSuccess, StatusIndicators.Success},
		{"error", RenderError, StatusIndicators.Error},
		{"warning", RenderWarning, StatusIndicators.Warning},
	}

	for _, tc := range cases {
		out := tc.fn("message")
		if !strings.Contains(out, tc.want) {
			t.Errorf("%s: output %q missing indicator %q", tc.name, out, tc.want)
		}
		if !strings.Contains(out, "message") {
			t.Errorf("%s: output %q missing message text", tc.name, out)
		}
	}
}

func TestAdaptiveColorsDefined(t *testing.T) {
	colors := map[string]struct{ light, dark string }{
		"Purple":      {Purple.Light, Purple.Dark},
		"Cyan":        {Cyan.Light, Cyan.Dark},
		"Emerald":     {Emerald.Light, Emerald.Dark},
		"Rose":        {Rose.Light, Rose.Dark},
		"Amber":       {Amber.Light, Amber.Dark},
		"TextPrimary": {TextPrimary.Light, TextPrimary.Dark},
	}

	for name, c := range colors {
		if !strings.HasPrefix(c.light, "#") || !strings.HasPrefix(c.dark, "#") {
			t.Errorf("%s: expected hex values, got light=%q dark=%q", name, c.light, c.dark)
		}
		if c.light == c.dark {
			t.Errorf("%s: light and dark variants should differ", name)
		}
	}
}
