package unillm

import (
	"sort"
	"sync"
)

// methodRank orders detection methods by specificity, most specific first:
// header > URL > shape > model hint.
var methodRank = map[DetectionMethod]int{
	MethodHeader:        0,
	MethodURL:           1,
	MethodResponseShape: 2,
	MethodModelHint:     3,
	MethodDefault:       4,
}

// Registry holds a set of Parser instances keyed by provider id and
// performs detection + dispatch. It is a constructed, caller-owned value
// rather than a hidden package-global. DefaultRegistry below is the
// library-owned convenience instance callers may opt into, but tests and
// multi-tenant callers can construct their own.
type Registry struct {
	mu              sync.RWMutex
	parsers         map[string]Parser
	defaultProvider string
	debug           bool
}

// NewRegistry creates an empty, independently-owned registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// SetDefaultProvider configures the provider id used when detection finds
// no candidate.
func (r *Registry) SetDefaultProvider(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultProvider = id
}

// SetDebug toggles detection-trace warnings: when on, the results of Parse
// and ParseStream carry a warning naming the method that fired and the
// candidates that lost.
func (r *Registry) SetDebug(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debug = on
}

// Register adds or replaces a parser. Idempotent.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[p.ID()] = p
}

// Unregister removes a parser if present. Idempotent.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.parsers, id)
}

// IsRegistered reports whether id names a registered parser.
func (r *Registry) IsRegistered(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.parsers[id]
	return ok
}

// Providers returns registered provider ids in a stable, sorted order;
// detection iterates in this same order, which is what makes
// DetectProvider deterministic.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.parsers))
	for id := range r.parsers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Lookup returns a registered parser by id, for callers that want to drive
// a multi-chunk stream directly via Parser.NewStream instead of going
// through the one-shot ParseStream convenience method.
func (r *Registry) Lookup(id string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[id]
	return p, ok
}

// Metadata returns a registered parser's static description.
func (r *Registry) Metadata(id string) (ProviderMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[id]
	if !ok {
		return ProviderMetadata{}, false
	}
	return p.Metadata(), true
}

// AllMetadata returns every registered parser's metadata, sorted by id.
func (r *Registry) AllMetadata() []ProviderMetadata {
	ids := r.Providers()
	out := make([]ProviderMetadata, 0, len(ids))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range ids {
		out = append(out, r.parsers[id].Metadata())
	}
	return out
}

// DetectProvider consults every registered parser's Detect; the most
// specific positive match wins, ties broken by provider id (Providers()
// order), so the result is a pure function of (body, headers, url).
func (r *Registry) DetectProvider(body any, headers map[string]string, url string) (Detection, bool) {
	d, _, ok := r.detectProvider(body, headers, url)
	return d, ok
}

// detectProvider additionally returns every losing candidate, for debug
// mode's detection trace.
func (r *Registry) detectProvider(body any, headers map[string]string, url string) (Detection, []Detection, bool) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.parsers))
	for id := range r.parsers {
		ids = append(ids, id)
	}
	parsers := r.parsers
	defaultProvider := r.defaultProvider
	r.mu.RUnlock()
	sort.Strings(ids)

	var candidates []Detection
	for _, id := range ids {
		method, ok := parsers[id].Detect(body, headers, url)
		if !ok {
			continue
		}
		confidence := ConfidenceHigh
		if method == MethodModelHint {
			confidence = ConfidenceMedium
		}
		candidates = append(candidates, Detection{Method: method, Provider: id, Confidence: confidence})
	}

	bestRank := 1 << 30
	var best *Detection
	for i, c := range candidates {
		if rank := methodRank[c.Method]; rank < bestRank {
			bestRank = rank
			best = &candidates[i]
		}
	}

	if best != nil {
		losers := make([]Detection, 0, len(candidates)-1)
		for _, c := range candidates {
			if c.Provider != best.Provider {
				losers = append(losers, c)
			}
		}
		return *best, losers, true
	}
	if defaultProvider != "" {
		return Detection{Method: MethodDefault, Provider: defaultProvider, Confidence: ConfidenceLow}, nil, true
	}
	return Detection{}, nil, false
}

// Parse dispatches to the forced provider if given, otherwise to whichever
// provider DetectProvider picks.
func (r *Registry) Parse(body any, forced string, headers map[string]string, url string) Result[UnifiedResponse] {
	provider, detection, debugWarnings, errRes := r.resolve(forced, body, headers, url)
	if errRes != nil {
		return *errRes
	}

	res := safeParse(provider, body)
	res.Detection = detection
	res.Warnings = append(debugWarnings, res.Warnings...)
	return res
}

// safeParse guards the parser boundary: a panic inside a provider's Parse
// becomes a ShapeMismatch failure instead of unwinding into the caller.
func safeParse(p Parser, body any) (res Result[UnifiedResponse]) {
	defer func() {
		if r := recover(); r != nil {
			res = failErr[UnifiedResponse](res.Warnings, shapeMismatch(p.ID(), r))
		}
	}()
	return p.Parse(body)
}

// safeParseChunk is safeParse's streaming counterpart.
func safeParseChunk(id string, s StreamParser, chunk any) (res Result[UnifiedStreamResponse]) {
	defer func() {
		if r := recover(); r != nil {
			res = failErr[UnifiedStreamResponse](res.Warnings, shapeMismatch(id, r))
		}
	}()
	return s.ParseChunk(chunk)
}

// ParseStream parses a single chunk against a freshly opened stream
// session. For a multi-chunk stream, callers should resolve the provider
// once (e.g. via DetectProvider on the first chunk) and drive one
// StreamParser directly; this method exists for one-shot convenience.
func (r *Registry) ParseStream(chunk any, forced string, headers map[string]string, url string) Result[UnifiedStreamResponse] {
	provider, detection, debugWarnings, errRes := r.resolve(forced, chunk, headers, url)
	if errRes != nil {
		return Result[UnifiedStreamResponse]{Success: false, Errors: errRes.Errors, Warnings: errRes.Warnings}
	}

	session := provider.NewStream()
	res := safeParseChunk(provider.ID(), session, chunk)
	res.Detection = detection
	res.Warnings = append(debugWarnings, res.Warnings...)
	return res
}

func (r *Registry) resolve(forced string, body any, headers map[string]string, url string) (Parser, *Detection, []string, *Result[UnifiedResponse]) {
	if forced != "" {
		r.mu.RLock()
		p, ok := r.parsers[forced]
		r.mu.RUnlock()
		if !ok {
			res := fail[UnifiedResponse](nil, newParseError(ErrProviderNotRegistered, forced, "provider not registered: "+forced).Error())
			return nil, nil, nil, &res
		}
		return p, nil, nil, nil
	}

	detection, losers, ok := r.detectProvider(body, headers, url)
	if !ok {
		res := fail[UnifiedResponse](nil, newParseError(ErrUnknownProvider, "", "no provider could be detected").Error())
		return nil, nil, nil, &res
	}

	r.mu.RLock()
	p, ok := r.parsers[detection.Provider]
	debug := r.debug
	r.mu.RUnlock()
	if !ok {
		res := fail[UnifiedResponse](nil, newParseError(ErrProviderNotRegistered, detection.Provider, "provider not registered: "+detection.Provider).Error())
		return nil, nil, nil, &res
	}

	var debugWarnings []string
	if debug {
		debugWarnings = append(debugWarnings,
			"detection: provider "+detection.Provider+" matched via "+string(detection.Method))
		for _, l := range losers {
			debugWarnings = append(debugWarnings,
				"detection: candidate "+l.Provider+" lost ("+string(l.Method)+" is less specific)")
		}
	}
	return p, &detection, debugWarnings, nil
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide default registry singleton. It
// starts empty; call RegisterAllProviders to populate it with the builtin
// set.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// ResetRegistry replaces the default registry's contents with an empty
// set. Intended for tests.
func ResetRegistry() {
	DefaultRegistry().mu.Lock()
	defer DefaultRegistry().mu.Unlock()
	defaultRegistry.parsers = make(map[string]Parser)
	defaultRegistry.defaultProvider = ""
}

// RegisterProvider registers a parser on the default registry.
func RegisterProvider(p Parser) {
	DefaultRegistry().Register(p)
}

// ParseResponse is the convenience wrapper around the default registry.
func ParseResponse(body any, forcedProvider string, headers map[string]string, url string) Result[UnifiedResponse] {
	return DefaultRegistry().Parse(body, forcedProvider, headers, url)
}

// ParseStreamChunk is the convenience wrapper around the default registry.
func ParseStreamChunk(chunk any, forcedProvider string, headers map[string]string, url string) Result[UnifiedStreamResponse] {
	return DefaultRegistry().ParseStream(chunk, forcedProvider, headers, url)
}
