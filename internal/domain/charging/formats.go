package charging

import "fmt"

// FormatInfo describes one supported export layout.
type FormatInfo struct {
	Description     string   `json:"description"`
	RequiredColumns []string `json:"required_columns"`
	OptionalColumns []string `json:"optional_columns"`
}

// Requirements describes what an upload must contain.
type Requirements struct {
	FileSizeLimit   string   `json:"file_size_limit"`
	MinimumSessions int      `json:"minimum_sessions"`
	RequiredData    []string `json:"required_data"`
	OptimalData     []string `json:"optimal_data"`
	FileTypes       []string `json:"file_types"`
}

// Capabilities is the static description served by the formats endpoint.
type Capabilities struct {
	Formats              map[string]FormatInfo `json:"formats"`
	Requirements         Requirements          `json:"requirements"`
	AnalysisCapabilities []string              `json:"analysis_capabilities"`
}

const minimumSessions = 5

// SupportedFormats describes the accepted layouts for an upload limit in bytes.
func SupportedFormats(maxUploadBytes int64) Capabilities {
	return Capabilities{
		Formats: map[string]FormatInfo{
			"tesla_mobile": {
				Description:     "Tesla mobile app export",
				RequiredColumns: []string{"Date", "Energy Added (kWh)", "Cost"},
				OptionalColumns: []string{"Location", "Charger Type", "Starting SOC", "Ending SOC", "Charging Time"},
			},
			"tesla_web": {
				Description:     "Tesla web portal export",
				RequiredColumns: []string{"Date", "Energy Delivered (kWh)", "Charge Cost"},
				OptionalColumns: []string{"Location Name", "Charger Type", "Charging Time (HH:MM)"},
			},
			"teslafi": {
				Description:     "TeslaFi service export",
				RequiredColumns: []string{"Date", "kWh", "Cost"},
				OptionalColumns: []string{"Location", "Charger", "Start %", "End %", "Max Power"},
			},
			"generic": {
				Description:     "Generic CSV with date, energy (kWh) and cost",
				RequiredColumns: []string{"Any date column", "Any energy column (kWh)", "Any cost column"},
				OptionalColumns: []string{"Location", "Charger type", "Duration", "SOC data"},
			},
		},
		Requirements: Requirements{
			FileSizeLimit:   fmt.Sprintf("%dMB", maxUploadBytes/(1024*1024)),
			MinimumSessions: minimumSessions,
			RequiredData:    []string{"Date/time", "Energy delivered (kWh)", "Session cost"},
			OptimalData:     []string{"Location", "Charger type", "Start/end SOC", "Charging duration"},
			FileTypes:       append([]string(nil), allowedExtensions...),
		},
		AnalysisCapabilities: []string{
			"Cost efficiency ($/kWh, kWh/$)",
			"Charger type optimization",
			"Location-based efficiency comparison",
			"Temporal usage patterns",
			"SOC optimization recommendations",
			"Cost-savings potential estimate",
		},
	}
}
