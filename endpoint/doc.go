// Package endpoint provides round-robin selection over equivalent remote replicas.
//
// A Pool is created once from configuration and shared by reference with every
// call site that talks to the same kind of service. Members are usually provider
// clients bound to one Endpoint each, so selecting a member selects the replica.
package endpoint
