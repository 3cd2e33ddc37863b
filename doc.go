// Package unillm normalizes heterogeneous LLM provider HTTP responses into a
// single provider-agnostic shape. Callers decode a provider's JSON body
// themselves (this package never touches the network) and hand the decoded
// value, plus whatever transport headers and request URL are available, to
// one of the package-level entry points or a Registry they own.
//
// # Quick start
//
//	unillm.RegisterAllProviders(unillm.DefaultRegistry())
//
//	var body any
//	json.Unmarshal(respBytes, &body)
//
//	result := unillm.ParseResponse(body, "", headers, url)
//	if !result.Success {
//	    log.Fatal(result.Errors)
//	}
//	resp := result.Value
//	fmt.Println(resp.Messages[0].Content)
//
// # Streaming
//
// Each provider parser opens an owned-per-stream session via NewStream; feed
// it decoded chunks in order and call Finalize when the provider's terminal
// event arrives:
//
//	parser, _ := unillm.DefaultRegistry().Lookup("openai")
//	stream := parser.NewStream()
//	for _, chunk := range chunks {
//	    stream.ParseChunk(chunk)
//	}
//	final := stream.Finalize()
//
// # Adding a provider
//
// Implement the Parser interface and register it on a Registry:
//
//	type MyParser struct{}
//	func (p *MyParser) ID() string { return "myprovider" }
//	func (p *MyParser) Detect(body any, headers map[string]string, url string) (DetectionMethod, bool) { ... }
//	func (p *MyParser) Parse(body any) Result[UnifiedResponse] { ... }
//	func (p *MyParser) NewStream() StreamParser { ... }
//	func (p *MyParser) Metadata() ProviderMetadata { ... }
//
//	unillm.DefaultRegistry().Register(&MyParser{})
//
// # Thread safety
//
// Registry is safe for concurrent use. A StreamParser session is not: it
// holds mutable per-stream state and must be driven by a single goroutine
// for the lifetime of one logical stream.
package unillm
