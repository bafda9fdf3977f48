// Package votingsystem implements the permissioned proposal-and-ballot tracker
// inside the governance context.
//
// A single administrator registers voters, opens time-bounded proposals and
// finalizes them once their voting window closes. Registered voters cast one
// yes/no ballot per proposal. Every mutation runs in one repository unit of
// work and appends its notification to the outbox in that same unit; workers
// relay the outbox to the event bus.
package votingsystem
