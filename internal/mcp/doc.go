// Package mcp exposes the test-case pipeline as MCP tools over stdio.
//
// Tools: process_user_story, batch_process_stories and test_coverage_report.
// Error strings in returned reports are scrubbed for secrets before they
// reach the client.
package mcp
