/*
Package marshal implements the schema-directed value-marshaling
protocol that lets structured values cross a JSON-only channel without
losing the parts JSON cannot express.

# Overview

A Value is a tagged variant: the six JSON kinds plus three special
kinds: a remote handle (live object, function or symbol retained
inside the execution context), a bigint, and undefined. A schema
declares where special values may appear via marker slots.

The protocol has three operations:

 1. Validate checks a value against a schema and locates every special
    value together with its path.
 2. Extract splits a validated value into a JSON-safe skeleton
    (special subtrees replaced by placeholders) and an ordered
    side-channel of the removed specials.
 3. Merge reverses the split on the receiving side, splicing specials
    back into a skeleton at their recorded paths.

# Schemas

Only the operators the protocol actually uses are supported: type (one
name, a list, or absent meaning any of the seven primitive kinds),
properties, required, additionalProperties, items, prefixItems,
minItems/maxItems, and oneOf/anyOf/allOf. An object schema whose
properties carry one of the marker keys ($pagebridge::remote,
$pagebridge::bigint, $pagebridge::undefined) is a special-value slot;
its whole subtree is treated as opaque. Properties not listed in
required implicitly accept null or absence: validation derives a
widened copy of the sub-schema and never mutates the caller's schema.

All three operations are synchronous, recursive and free of shared
state; they are safe to call from any goroutine.
*/
package marshal
