package service

import (
	"net/url"

	"github.com/FACorreiaa/charge-analytics/internal/domain/import/sniffer"
)

// Query parameters that override layout detection.
const (
	ParamHeaderRow = "header_row"
	ParamDelimiter = "delimiter"
)

// ParseLayout reads the layout overrides from query values. It returns nil
// when neither is set. On error, param names the rejected parameter.
func ParseLayout(q url.Values) (layout *sniffer.DetectOptions, param string, err error) {
	if _, err := sniffer.ParseOptions(q.Get(ParamHeaderRow), ""); err != nil {
		return nil, ParamHeaderRow, err
	}
	layout, err = sniffer.ParseOptions(q.Get(ParamHeaderRow), q.Get(ParamDelimiter))
	if err != nil {
		return nil, ParamDelimiter, err
	}
	return layout, "", nil
}
