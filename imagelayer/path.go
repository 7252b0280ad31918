package imagelayer

import (
	"path/filepath"

	"github.com/shanyp/pageserver/ids"
)

// Config is the tenant/timeline directory layout of spec.md §6:
// <workdir>/tenants/<tenant_hex>/timelines/<timeline_hex>/<filename>.
type Config struct {
	WorkDir string
}

// TimelinePath returns the directory a layer file for (tenantID,
// timelineID) lives in.
func (c *Config) TimelinePath(tenantID ids.TenantID, timelineID ids.TimelineID) string {
	return filepath.Join(c.WorkDir, "tenants", tenantID.String(), "timelines", timelineID.String())
}

// pathSource is the Go analogue of the Rust image layer's PathOrConf: either a
// canonical path derived from a Config, or a fully-qualified path handed
// in directly by a one-shot debug tool (spec.md §3, §4.4 step 5).
type pathSource struct {
	conf *Config
	path string
}

// fromConfig derives paths from a tenant/timeline layout.
func fromConfig(c *Config) pathSource { return pathSource{conf: c} }

// fromPath pins the path to exactly what was given, for the debug
// dump tool (spec.md §6's NewForPath).
func fromPath(p string) pathSource { return pathSource{path: p} }

// isConfig reports whether this source derives paths from a Config
// (true) or was pinned to a literal path (false).
func (s pathSource) isConfig() bool { return s.conf != nil }

// resolve returns the path for a layer named fname under (tenantID,
// timelineID), or the pinned literal path if this source isn't
// Config-backed.
func (s pathSource) resolve(tenantID ids.TenantID, timelineID ids.TimelineID, fname string) string {
	if s.conf != nil {
		return filepath.Join(s.conf.TimelinePath(tenantID, timelineID), fname)
	}
	return s.path
}
