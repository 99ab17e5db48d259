package models

// Well-known provider keys.
const (
	ProviderSpotify = "spotify"
	ProviderYouTube = "youtube"
	ProviderMBID    = "mbid"
	ProviderLastFM  = "lastfm"
	ProviderISRC    = "isrc"
	ProviderURL     = "url"
	ProviderPath    = "path"
)

// identityProviders are the keys whose values name the same real-world recording everywhere.
// url and path locate a copy and never take part in identity.
var identityProviders = map[string]bool{
	ProviderSpotify: true,
	ProviderYouTube: true,
	ProviderMBID:    true,
	ProviderLastFM:  true,
	ProviderISRC:    true,
}

// ProviderIDs maps a provider name to that provider's id for an entity.
type ProviderIDs map[string]string

// Get returns the id for provider, or "".
func (p ProviderIDs) Get(provider string) string {
	return p[provider]
}

// Set stores id under provider, allocating the map when needed. Empty ids are ignored.
func (p *ProviderIDs) Set(provider, id string) {
	if id == "" {
		return
	}
	if *p == nil {
		*p = make(ProviderIDs)
	}
	(*p)[provider] = id
}

// Shares reports whether both maps carry an equal id for some identity provider.
func (p ProviderIDs) Shares(other ProviderIDs) bool {
	for k, v := range p {
		if identityProviders[k] && v != "" && other[k] == v {
			return true
		}
	}
	return false
}

// HasIdentity reports whether some identity provider id is set.
func (p ProviderIDs) HasIdentity() bool {
	for k, v := range p {
		if identityProviders[k] && v != "" {
			return true
		}
	}
	return false
}

// Compare decides identity from ids alone. decided is false when no identity provider is present in both maps;
// otherwise same reports whether any common provider agrees.
func (p ProviderIDs) Compare(other ProviderIDs) (same, decided bool) {
	for k, v := range p {
		if !identityProviders[k] || v == "" {
			continue
		}
		ov, ok := other[k]
		if !ok || ov == "" {
			continue
		}
		if ov == v {
			return true, true
		}
		decided = true
	}
	return false, decided
}

// Union copies ids from other that p does not have. Existing values win on conflict.
func (p *ProviderIDs) Union(other ProviderIDs) {
	for k, v := range other {
		if _, ok := (*p)[k]; !ok {
			p.Set(k, v)
		}
	}
}

// Clone returns an independent copy.
func (p ProviderIDs) Clone() ProviderIDs {
	if p == nil {
		return nil
	}
	c := make(ProviderIDs, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}
