// SPDX-License-Identifier: MIT

package server

type infoDocument struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	SupportedNIPs []int  `json:"supported_nips"`
	Software      string `json:"software"`
	Version       string `json:"version"`
}

func newInfoDocument(cfg *Config) *infoDocument {
	return &infoDocument{
		Name:          cfg.Name,
		Description:   cfg.Description,
		SupportedNIPs: []int{1, 9, 12, 13, 15, 20},
		Software:      "https://github.com/solstice-net/solstice",
		Version:       "1.0.0",
	}
}
