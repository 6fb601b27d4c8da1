package report

import "errors"

var (
	ErrReportNotFound  = errors.New("report not found")
	ErrInvalidStatus   = errors.New("invalid report status")
	ErrInvalidLocation = errors.New("invalid location")
)
