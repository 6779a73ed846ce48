// Package catalog loads the list of models the service can run and resolves
// a caller's model selector to an engine target. The catalog file is YAML;
// the JSON list format used by older deployments parses unchanged.
package catalog
