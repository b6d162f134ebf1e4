package telemetry

import (
	"fmt"

	"mpstats/internal/components/assert"
)

// API is the reporting surface every component logs through, it keeps
// components independent of the concrete logger so tests can assert on what
// was reported.
type API interface {
	// ReportBroken reports a component that broke in a way someone should look at.
	//
	// `id` names the component and method that broke, not the specific line,
	// ex. `client.get-appmsgext`. Ids are lowercase, underscores separate words of a
	// component and dashes separate words of a method. Additional detail such as the
	// wrapped error or the url goes into params.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something that is not necessarily broken but may be
	// worth investigating, for example a page that is missing an optional field.
	ReportWarning(id string, params ...any)

	// ReportDebug reports information that is only useful while debugging.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the value of a counter at the current time. The values
	// are points over time and should not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, similar to a sub-logger.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	assert.NotEmptyStr(namespace, "namespace")
	assert.NotNil(inner, "inner")
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}
