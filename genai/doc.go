// Package genai is a client for the Gemini generateContent REST API.
//
// GenerateContentStream returns a *Stream that sends the request on the first
// Recv and turns the text/event-stream body into GenerateContentResponse
// chunks, one per data frame, in wire order:
//
//	stream, err := client.GenerateContentStream(ctx, &genai.GenerateContentRequest{
//		Contents: genai.Text("Why is the sky blue?"),
//	})
//	if err != nil {
//		return err
//	}
//	for chunk, err := range stream.All() {
//		if err != nil {
//			if genai.IsRecoverable(err) {
//				continue
//			}
//			return err
//		}
//		fmt.Print(chunk.Text())
//	}
//
// Errors are typed: *ValidationError (rejected before sending),
// *APIError (non-2xx status with body and lower-cased headers),
// *TransportError (network failure, terminal) and *DecodeError (one bad
// frame; the stream continues).
package genai
