package domain

import (
	"encoding/json"
	"strings"
)

type Job struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Company     string `json:"company,omitempty"`
	SalaryMax   string `json:"salary_max,omitempty"`
	SalaryMin   string `json:"salary_min,omitempty"`
	Fit         string `json:"fit,omitempty"`
	Location    string `json:"location,omitempty"`
	Type        string `json:"type,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
	Remote      string `json:"remote,omitempty"`
	Experience  string `json:"experience,omitempty"`
	Source      string `json:"source,omitempty"`
	URL         string `json:"url,omitempty"`
}

// UnmarshalJSON accepts numbers and booleans where the agent usually sends strings
// (ids and salaries are the usual offenders), and DynamoDB attribute values
// ({"M": {...}}, {"S": "..."}, {"N": "..."}) when records come straight from the table.
func (j *Job) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if inner, ok := raw["M"]; ok && len(raw) == 1 {
		raw = nil
		if err := json.Unmarshal(inner, &raw); err != nil {
			return err
		}
	}

	fields := map[string]*string{
		"id":          &j.ID,
		"title":       &j.Title,
		"description": &j.Description,
		"company":     &j.Company,
		"salary_max":  &j.SalaryMax,
		"salary_min":  &j.SalaryMin,
		"fit":         &j.Fit,
		"location":    &j.Location,
		"type":        &j.Type,
		"industry":    &j.Industry,
		"deadline":    &j.Deadline,
		"remote":      &j.Remote,
		"experience":  &j.Experience,
		"source":      &j.Source,
		"url":         &j.URL,
	}
	for key, dst := range fields {
		if value, ok := raw[key]; ok {
			*dst = looseString(value)
		}
	}

	return nil
}

func looseString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" {
		return ""
	}

	var attribute map[string]json.RawMessage
	if err := json.Unmarshal(raw, &attribute); err == nil && len(attribute) == 1 {
		for _, key := range []string{"S", "N"} {
			if value, ok := attribute[key]; ok {
				return looseString(value)
			}
		}
	}

	return trimmed
}

type Citation struct {
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}
