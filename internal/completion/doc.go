// Package completion generates test cases from user stories and reviews
// their quality through a chat-completion model.
//
// Each call is a two-message exchange: a fixed system instruction and the
// story (or the test case under review) as user content. Replies are decoded
// strictly; a malformed reply is a *ParseError carrying the raw text, and a
// failed call is a *ServiceError. Review has a soft-fail wrapper,
// ValidateTestCase, that substitutes NeutralAssessment.
//
// Providers: azure and openai via langchaingo, gemini via google.golang.org/genai.
package completion
