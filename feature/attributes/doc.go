// Package attributes reconciles the descriptive attributes of devices.
//
// An import proposes device rows. For each proposal the Reconciler looks up
// the canonical devices already on record with the same device_id and decides
// what the canonical attribute set becomes:
//
//   - Same identity, differing attributes: each field follows its policy
//     (longest text wins, keep existing, take new, or ask the operator).
//   - Same device_id, differing manufacturer: the operator chooses to keep the
//     existing device, take the new one or treat both as distinct parts.
//
// Taking the new identity re-keys every dependent row (bom, shop, stock,
// ledger) from the old device hash to the new one. All of it is returned as a
// plan.Plan so the caller applies it inside the import transaction.
//
// # Deciders
//
// Operator input comes from a Decider. Strict fails with
// apperr.ReconciliationConflictError, Fixed always gives the same answer and
// Terminal prompts on a reader/writer pair.
package attributes
