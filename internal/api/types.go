package api

import "boombot/pkg/boombot"

type validateSectorPayload struct {
	Text string `json:"text"`
}

type recommendPayload struct {
	Sector string `json:"sector"`
}

type formatPayload struct {
	Text string `json:"text"`
}

type sectorsResponse struct {
	Sectors    []string          `json:"sectors"`
	Synonyms   []boombot.Synonym `json:"synonyms"`
	Qualifiers []string          `json:"qualifiers"`
}
