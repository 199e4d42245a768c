// Package knowledge embeds the static reference text the reasoners cite:
// the storage schema and the RF spectrum domain primer.
package knowledge

import (
	_ "embed"
	"strings"
)

var (
	//go:embed text/schema.txt
	schemaRaw string

	//go:embed text/rf_spectrum.txt
	spectrumRaw string
)

func Schema() string {
	return strings.TrimSpace(schemaRaw)
}

func Spectrum() string {
	return strings.TrimSpace(spectrumRaw)
}

// For returns the knowledge blocks an analysis asked for, joined in a
// stable order. Empty when neither block is needed.
func For(needsSchema, needsSpectrum bool) string {
	var parts []string
	if needsSchema {
		parts = append(parts, Schema())
	}
	if needsSpectrum {
		parts = append(parts, Spectrum())
	}
	return strings.Join(parts, "\n\n")
}
