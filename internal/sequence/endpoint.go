package sequence

import (
	"slices"
	"strings"
)

// Host is one physical instance observed under a logical endpoint.
type Host struct {
	Host     string
	HostID   string
	versions []string
}

// Versions returns the distinct versions seen on this host, in first-seen
// order.
func (h *Host) Versions() []string {
	return slices.Clone(h.versions)
}

func (h *Host) addVersion(v string) {
	if v == "" || slices.Contains(h.versions, v) {
		return
	}
	h.versions = append(h.versions, v)
}

// EndpointIdentity is a logical endpoint. Identities are equal iff their
// names are equal; the registry hands out one pointer per name.
type EndpointIdentity struct {
	Name     string
	hosts    []*Host
	handlers []*Handler
}

// FindHost returns the host matching (hostID, host), or nil.
func (e *EndpointIdentity) FindHost(hostID, host string) *Host {
	for _, h := range e.hosts {
		if h.HostID == hostID && h.Host == host {
			return h
		}
	}
	return nil
}

// Hosts returns the observed hosts in first-seen order.
func (e *EndpointIdentity) Hosts() []*Host {
	return slices.Clone(e.hosts)
}

// HostIDs joins the id of every host, one entry per host in first-seen
// order. Entries line up with HostNames.
func (e *EndpointIdentity) HostIDs() string {
	return e.joinHosts(func(h *Host) string { return h.HostID })
}

// HostNames joins the name of every host, one entry per host in first-seen
// order. Two host ids on one machine repeat the machine name.
func (e *EndpointIdentity) HostNames() string {
	return e.joinHosts(func(h *Host) string { return h.Host })
}

// Versions joins the distinct versions across all hosts.
func (e *EndpointIdentity) Versions() string {
	var out []string
	for _, h := range e.hosts {
		for _, v := range h.versions {
			if !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
	}
	return strings.Join(out, ", ")
}

// Handlers returns the handlers owned by this endpoint in creation order.
func (e *EndpointIdentity) Handlers() []*Handler {
	return slices.Clone(e.handlers)
}

func (e *EndpointIdentity) joinHosts(field func(*Host) string) string {
	out := make([]string, len(e.hosts))
	for i, h := range e.hosts {
		out[i] = field(h)
	}
	return strings.Join(out, ", ")
}

// merge adds (host, hostID) if unseen and folds version into it.
func (e *EndpointIdentity) merge(host, hostID, version string) {
	h := e.FindHost(hostID, host)
	if h == nil {
		h = &Host{Host: host, HostID: hostID}
		e.hosts = append(e.hosts, h)
	}
	h.addVersion(version)
}

// EndpointRegistry owns the identities of one reconstruction run.
type EndpointRegistry struct {
	byName map[string]*EndpointIdentity
	order  []*EndpointIdentity
}

// NewEndpointRegistry returns an empty registry.
func NewEndpointRegistry() *EndpointRegistry {
	return &EndpointRegistry{byName: make(map[string]*EndpointIdentity)}
}

// ResolveOrCreate returns the identity for name, creating it on first use,
// and merges the given host and version into it. An empty version is
// ignored. Repeated calls with the same arguments are no-ops.
func (r *EndpointRegistry) ResolveOrCreate(name, host, hostID, version string) *EndpointIdentity {
	id, ok := r.byName[name]
	if !ok {
		id = &EndpointIdentity{Name: name}
		r.byName[name] = id
		r.order = append(r.order, id)
	}
	id.merge(host, hostID, version)
	return id
}

// Lookup returns the identity for name, if any.
func (r *EndpointRegistry) Lookup(name string) (*EndpointIdentity, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// All returns every identity in creation order.
func (r *EndpointRegistry) All() []*EndpointIdentity {
	return slices.Clone(r.order)
}
