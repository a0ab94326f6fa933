// Package secrets redacts credentials from user story text before it is sent
// to the completion service or written into tracker issues.
//
// Detection combines the Gitleaks default rule set with a short list of
// built-in patterns for credentials that show up in pasted tickets
// (connection strings, bearer headers, env assignments). A TOML allowlist
// can exempt known-safe values such as example keys used in test data.
//
// Findings never carry the matched text; only rule IDs, positions and
// counts leave the package.
package secrets
