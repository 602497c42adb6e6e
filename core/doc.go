// Package core defines the provider-agnostic conversation model shared by the
// orchestration loop, the tool executor and the model adapters: typed message
// content (text, reasoning, function calls/results, approval handshakes,
// usage), full responses, streaming response fragments and the assembler that
// folds an ordered fragment sequence back into one coherent response.
package core
