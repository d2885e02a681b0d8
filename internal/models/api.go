package models

import "time"

// Policy type tags as they appear in gateway configuration documents. The
// gateway stores each policy's concrete class; the final dotted segment of
// that class is the tag recorded here.
const (
	PolicyIPWhite      = "PolicyIpWhite"
	PolicyIPBlack      = "PolicyIpBlack"
	PolicyAllowedHours = "PolicyAllowedHours"
	PolicyClientBanner = "PolicyClientBanner"
	PolicySAML         = "PolicySaml"
	PolicyCondition    = "PolicyCondition"

	PolicyAPIBasedThrottling = "PolicyApiBasedThrottling"
	PolicyAPIBasedQuota      = "PolicyApiBasedQuota"
	PolicyEndpointRateLimit  = "PolicyEndpointRateLimit"

	PolicyAPIAuthentication    = "PolicyApiAuthentication"
	PolicyBasicAuthentication  = "PolicyBasicAuthentication"
	PolicyDigestAuthentication = "PolicyDigestAuthentication"
	PolicyJWTAuthentication    = "PolicyJwtAuthentication"
	PolicyOAuth2Authentication = "PolicyOauth2Authentication"
	PolicyMTLSAuthentication   = "PolicyMTLSAuthentication"
	PolicyBase64Authentication = "PolicyBase64Authentication"
)

// PolicyRef is one policy attached to an API, in request, response or error
// direction.
type PolicyRef struct {
	Type      string `json:"type"`
	Enabled   bool   `json:"enabled"`
	Order     int    `json:"order"`
	Direction string `json:"direction"`
	FullClass string `json:"full_class,omitempty"`
}

// PolicySet groups an API's policies by pipeline direction.
type PolicySet struct {
	Request  []PolicyRef `json:"request"`
	Response []PolicyRef `json:"response"`
	Error    []PolicyRef `json:"error"`
}

// All returns the request, response and error policies as a single slice, in
// that order.
func (s PolicySet) All() []PolicyRef {
	all := make([]PolicyRef, 0, len(s.Request)+len(s.Response)+len(s.Error))
	all = append(all, s.Request...)
	all = append(all, s.Response...)
	all = append(all, s.Error...)
	return all
}

// SSLSummary describes TLS coverage for one side of an API: the client-facing
// deployments or the backend routing targets. NonSSL holds a short descriptor
// per plaintext endpoint (environment name on the client side, backend
// address on the backend side).
type SSLSummary struct {
	Total       int      `json:"total"`
	SSLCount    int      `json:"ssl_count"`
	NonSSLCount int      `json:"non_ssl_count"`
	NonSSL      []string `json:"non_ssl_list,omitempty"`
	AllSSL      bool     `json:"all_ssl"`
}

// Environment is one deployment target of an API.
type Environment struct {
	Name     string `json:"name"`
	URL      string `json:"url,omitempty"`
	Protocol string `json:"protocol,omitempty"`
}

// LogSettings reports whether request/response tracing is switched on for an
// API. Traced payloads are what the sensitive-field scan inspects.
type LogSettings struct {
	TraceEnabled bool `json:"trace_enabled"`
}

// APIConfig is the full security-relevant configuration of one API as read
// from the gateway's configuration store.
type APIConfig struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Version     string        `json:"version,omitempty"`
	Deployments []Environment `json:"deployed_environments"`
	Policies    PolicySet     `json:"policies"`
	ClientSSL   SSLSummary    `json:"client_ssl"`
	BackendSSL  SSLSummary    `json:"backend_ssl"`
	Logs        LogSettings   `json:"logs_enabled"`
	CreatedAt   time.Time     `json:"created_date,omitempty"`
	UpdatedAt   time.Time     `json:"updated_date,omitempty"`
}

// APISummary is the list-view projection of an API: identity, deployments and
// policy counts, without the full policy detail.
type APISummary struct {
	ID               string        `json:"id"`
	Name             string        `json:"service_name"`
	Deployments      []Environment `json:"deployed_environments"`
	RequestPolicies  int           `json:"request_policies"`
	ResponsePolicies int           `json:"response_policies"`
	CreatedAt        time.Time     `json:"created_date,omitempty"`
	UpdatedAt        time.Time     `json:"updated_date,omitempty"`
}

// PolicyStatistics is the gateway-wide policy adoption overview.
type PolicyStatistics struct {
	TotalAPIs            int     `json:"total_apis"`
	WithSecurity         int     `json:"with_security"`
	WithThrottling       int     `json:"with_throttling"`
	WithAuth             int     `json:"with_auth"`
	SecurityPercentage   float64 `json:"security_percentage"`
	ThrottlingPercentage float64 `json:"throttling_percentage"`
	AuthPercentage       float64 `json:"auth_percentage"`
}

// IPGroup is a named set of IP addresses maintained in the gateway, usable as
// whitelist or blacklist material.
type IPGroup struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	IPs         []string `json:"ips"`
	Description string   `json:"description,omitempty"`
}

// ElasticConnection is one named log-store connection registered in the
// gateway's configuration store. Credentials never serialize.
type ElasticConnection struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	Username     string `json:"-"`
	Password     string `json:"-"`
	IndexPattern string `json:"index_pattern"`
	Authenticate bool   `json:"authenticate"`
	ProjectID    string `json:"project_id,omitempty"`
}
