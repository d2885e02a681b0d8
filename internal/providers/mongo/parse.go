package mongo

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gateguard/gateguard/internal/models"
)

// Defaults applied when gateway documents omit a field.
const (
	defaultESScheme        = "HTTP"
	defaultESHost          = "localhost"
	defaultESPort          = 9200
	defaultESName          = "Unknown-ES"
	defaultESIndex         = "apinizer-log-apiproxy-default"
	defaultESProject       = "admin"
	defaultAPIVersion      = "1.0"
	unknownNamePlaceholder = "Unknown"
)

// proxyDocument mirrors the slice of an api_proxy document this module reads.
type proxyDocument struct {
	ID                     primitive.ObjectID `bson:"_id"`
	Name                   string             `bson:"name"`
	Description            string             `bson:"description"`
	Version                string             `bson:"version"`
	RequestPolicyList      []policyDocument   `bson:"requestPolicyList"`
	ResponsePolicyList     []policyDocument   `bson:"responsePolicyList"`
	ErrorPolicyList        []policyDocument   `bson:"errorPolicyList"`
	DeployList             []deployDocument   `bson:"apiProxyDeployList"`
	Routing                routingDocument    `bson:"routing"`
	ApplicationLogSettings logSettingsDoc     `bson:"applicationLogSettings"`
	TraceSettings          logSettingsDoc     `bson:"traceSettings"`
	CreatedDate            time.Time          `bson:"createdDate"`
	UpdatedDate            time.Time          `bson:"updatedDate"`
}

type policyDocument struct {
	Class   string `bson:"_class"`
	Enabled *bool  `bson:"enabled"`
	Order   int    `bson:"order"`
}

type deployDocument struct {
	Deploy          bool   `bson:"deploy"`
	EnvironmentName string `bson:"environmentName"`
	AccessURL       string `bson:"accessUrl"`
	Protocol        string `bson:"environmentCommunicationProtocolType"`
}

type routingDocument struct {
	Addresses []routingAddress `bson:"routingAddressWrapperList"`
}

type routingAddress struct {
	Address string `bson:"address"`
}

type logSettingsDoc struct {
	EnableTraceLog bool `bson:"enableTraceLog"`
}

type ipGroupDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"name"`
	IPList      []string           `bson:"ipList"`
	Description string             `bson:"description"`
}

type esConnDocument struct {
	Name         string      `bson:"name"`
	Hosts        []esHostDoc `bson:"elasticHostList"`
	Username     string      `bson:"username"`
	Password     string      `bson:"password"`
	IndexName    string      `bson:"indexName"`
	Authenticate bool        `bson:"authenticate"`
	ProjectID    string      `bson:"projectId"`
}

type esHostDoc struct {
	Scheme string `bson:"scheme"`
	Host   string `bson:"host"`
	Port   int    `bson:"port"`
}

// policyType extracts the short policy tag from a fully qualified class name,
// e.g. "com.example.policy.PolicyIpWhite" becomes "PolicyIpWhite".
func policyType(class string) string {
	if i := strings.LastIndex(class, "."); i >= 0 {
		return class[i+1:]
	}
	return class
}

// asRef converts one stored policy entry. Entries without an explicit enabled
// flag count as enabled.
func (p policyDocument) asRef(direction string) models.PolicyRef {
	enabled := true
	if p.Enabled != nil {
		enabled = *p.Enabled
	}
	return models.PolicyRef{
		Type:      policyType(p.Class),
		Enabled:   enabled,
		Order:     p.Order,
		Direction: direction,
		FullClass: p.Class,
	}
}

func parsePolicies(doc *proxyDocument) models.PolicySet {
	var set models.PolicySet
	for _, p := range doc.RequestPolicyList {
		set.Request = append(set.Request, p.asRef("request"))
	}
	for _, p := range doc.ResponsePolicyList {
		set.Response = append(set.Response, p.asRef("response"))
	}
	for _, p := range doc.ErrorPolicyList {
		set.Error = append(set.Error, p.asRef("error"))
	}
	return set
}

// clientSSL summarizes TLS coverage of the deployed client-facing endpoints.
// URLs with an unrecognized scheme count toward the total but are not listed
// as plaintext.
func clientSSL(deploys []deployDocument) models.SSLSummary {
	var sum models.SSLSummary
	for _, d := range deploys {
		if !d.Deploy {
			continue
		}
		sum.Total++
		switch {
		case strings.HasPrefix(d.AccessURL, "https://"):
			sum.SSLCount++
		case strings.HasPrefix(d.AccessURL, "http://"):
			name := d.EnvironmentName
			if name == "" {
				name = unknownNamePlaceholder
			}
			sum.NonSSL = append(sum.NonSSL, name)
		}
	}
	sum.NonSSLCount = sum.Total - sum.SSLCount
	sum.AllSSL = sum.Total > 0 && sum.SSLCount == sum.Total
	return sum
}

// backendSSL summarizes TLS coverage of the backend routing targets.
func backendSSL(routing routingDocument) models.SSLSummary {
	var sum models.SSLSummary
	sum.Total = len(routing.Addresses)
	for _, a := range routing.Addresses {
		switch {
		case strings.HasPrefix(a.Address, "https://"):
			sum.SSLCount++
		case strings.HasPrefix(a.Address, "http://"):
			sum.NonSSL = append(sum.NonSSL, a.Address)
		}
	}
	sum.NonSSLCount = sum.Total - sum.SSLCount
	sum.AllSSL = sum.Total > 0 && sum.SSLCount == sum.Total
	return sum
}

// deployedEnvironments keeps only entries actually deployed.
func deployedEnvironments(deploys []deployDocument) []models.Environment {
	var envs []models.Environment
	for _, d := range deploys {
		if !d.Deploy {
			continue
		}
		envs = append(envs, models.Environment{
			Name:     d.EnvironmentName,
			URL:      d.AccessURL,
			Protocol: d.Protocol,
		})
	}
	return envs
}

func (d *proxyDocument) displayName() string {
	if d.Name == "" {
		return unknownNamePlaceholder
	}
	return d.Name
}

func (d *proxyDocument) toConfig() *models.APIConfig {
	version := d.Version
	if version == "" {
		version = defaultAPIVersion
	}
	return &models.APIConfig{
		ID:          d.ID.Hex(),
		Name:        d.displayName(),
		Description: d.Description,
		Version:     version,
		Deployments: deployedEnvironments(d.DeployList),
		Policies:    parsePolicies(d),
		ClientSSL:   clientSSL(d.DeployList),
		BackendSSL:  backendSSL(d.Routing),
		Logs: models.LogSettings{
			TraceEnabled: d.ApplicationLogSettings.EnableTraceLog || d.TraceSettings.EnableTraceLog,
		},
		CreatedAt: d.CreatedDate,
		UpdatedAt: d.UpdatedDate,
	}
}

func (d *proxyDocument) toSummary() models.APISummary {
	return models.APISummary{
		ID:               d.ID.Hex(),
		Name:             d.displayName(),
		Deployments:      deployedEnvironments(d.DeployList),
		RequestPolicies:  len(d.RequestPolicyList),
		ResponsePolicies: len(d.ResponsePolicyList),
		CreatedAt:        d.CreatedDate,
		UpdatedAt:        d.UpdatedDate,
	}
}

func (d *ipGroupDocument) toGroup() models.IPGroup {
	name := d.Name
	if name == "" {
		name = unknownNamePlaceholder
	}
	return models.IPGroup{
		ID:          d.ID.Hex(),
		Name:        name,
		IPs:         d.IPList,
		Description: d.Description,
	}
}

// toConnection builds the connection from the first configured host. A
// document without hosts is unusable and reports ok false.
func (d *esConnDocument) toConnection() (models.ElasticConnection, bool) {
	if len(d.Hosts) == 0 {
		return models.ElasticConnection{}, false
	}
	first := d.Hosts[0]
	scheme := first.Scheme
	if scheme == "" {
		scheme = defaultESScheme
	}
	host := first.Host
	if host == "" {
		host = defaultESHost
	}
	port := first.Port
	if port == 0 {
		port = defaultESPort
	}
	name := d.Name
	if name == "" {
		name = defaultESName
	}
	pattern := d.IndexName
	if pattern == "" {
		pattern = defaultESIndex
	}
	project := d.ProjectID
	if project == "" {
		project = defaultESProject
	}
	return models.ElasticConnection{
		Name:         name,
		URL:          fmt.Sprintf("%s://%s:%d", strings.ToLower(scheme), host, port),
		Username:     d.Username,
		Password:     d.Password,
		IndexPattern: pattern,
		Authenticate: d.Authenticate,
		ProjectID:    project,
	}, true
}

// Policy groups for gateway-wide adoption statistics. Membership is checked
// on the short class tag across all three pipeline directions; the enabled
// flag does not participate, so the counts describe what is configured.
var (
	securityPolicyTypes = map[string]bool{
		models.PolicyIPWhite:      true,
		models.PolicyIPBlack:      true,
		models.PolicyAllowedHours: true,
		models.PolicyClientBanner: true,
		models.PolicySAML:         true,
		models.PolicyCondition:    true,
	}
	throttlingPolicyTypes = map[string]bool{
		models.PolicyAPIBasedThrottling: true,
		models.PolicyAPIBasedQuota:      true,
		models.PolicyEndpointRateLimit:  true,
	}
	authPolicyTypes = map[string]bool{
		models.PolicyAPIAuthentication:    true,
		models.PolicyBasicAuthentication:  true,
		models.PolicyDigestAuthentication: true,
		models.PolicyJWTAuthentication:    true,
		models.PolicyOAuth2Authentication: true,
		models.PolicyMTLSAuthentication:   true,
		models.PolicyBase64Authentication: true,
	}
)

func accumulatePolicyStats(stats *models.PolicyStatistics, doc *proxyDocument) {
	stats.TotalAPIs++

	var hasSecurity, hasThrottling, hasAuth bool
	for _, list := range [][]policyDocument{doc.RequestPolicyList, doc.ResponsePolicyList, doc.ErrorPolicyList} {
		for _, p := range list {
			tag := policyType(p.Class)
			if securityPolicyTypes[tag] {
				hasSecurity = true
			}
			if throttlingPolicyTypes[tag] {
				hasThrottling = true
			}
			if authPolicyTypes[tag] {
				hasAuth = true
			}
		}
	}
	if hasSecurity {
		stats.WithSecurity++
	}
	if hasThrottling {
		stats.WithThrottling++
	}
	if hasAuth {
		stats.WithAuth++
	}
}
