// Package gemini implements engine.Engine on top of Google's generative AI
// API. Image generation is served by Imagen models and prompt token counts
// by a Gemini text model.
package gemini
