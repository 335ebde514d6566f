package ai

import "strings"

// Per-million-token USD prices. Cache reads are billed at a quarter of the
// input rate. Unknown models fall back to the most expensive known rate so
// the budget gate errs on the side of pausing early.
type modelPricing struct {
	inputPerM  float64
	outputPerM float64
}

var pricing = map[string]modelPricing{
	"gemini-2.5-flash": {inputPerM: 0.30, outputPerM: 2.50},
	"gemini-2.5-pro":   {inputPerM: 1.25, outputPerM: 10.00},
	"gemini-2.0-flash": {inputPerM: 0.10, outputPerM: 0.40},
}

var fallbackPricing = modelPricing{inputPerM: 1.25, outputPerM: 10.00}

func pricingFor(model string) modelPricing {
	if p, ok := pricing[model]; ok {
		return p
	}
	// tolerate versioned suffixes like gemini-2.5-flash-001
	for name, p := range pricing {
		if strings.HasPrefix(model, name) {
			return p
		}
	}
	return fallbackPricing
}

func costUSD(model string, in, out, cacheRead int64) float64 {
	p := pricingFor(model)
	c := float64(in)/1e6*p.inputPerM + float64(out)/1e6*p.outputPerM
	c += float64(cacheRead) / 1e6 * p.inputPerM * 0.25
	return c
}
