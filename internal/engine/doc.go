// Package engine is the coordinator of the inventory core.
//
// One Engine instance owns the store, the rule set, the alert bus, the event
// bus, and the per-SKU lock table. All product mutations flow through it:
//
//	mutation -> per-SKU lock -> tx(product write + movement append) -> rules
//
// Rule evaluation runs synchronously after the transaction commits, in
// declaration order, with per-pass fire tracking so a rule action that
// mutates state cannot re-trigger the same rule recursively.
package engine
