// Package pipeline orchestrates test-case generation: a story goes through
// generation, per-test-case review, issue creation and parent linking.
//
// Nothing here returns an error. Generation failures end a story's run
// with a recorded error; per-test-case failures are counted and the run
// continues; review failures are absorbed by the completion client. The
// coverage report degrades to an empty report when the tracker cannot be
// queried.
package pipeline
