// Package index presents index key ranges as typed, filtered collections.
//
// # Overview
//
// An index entry is a key with an empty value. The key is a prefix (the
// storage id of the index) followed by one encoded value per component and
// the encoded target, usually the id of the object holding the values:
//
//   - simple field:    fieldSID + value + objID
//   - composite index: indexSID + v1 + ... + vN + objID
//   - set element:     elemSID + value + objID
//   - list element:    elemSID + value + objID + listIndex
//   - map key:         keySID + key + objID
//   - map value:       valueSID + value + objID + key
//
// Every encoding is self-delimiting and order preserving, so a key can be
// split back into its components without any length header, and comparing
// keys as bytes orders entries by (v1, ..., vN, target).
//
// # Views
//
// View1..View4 describe such a layout without touching a store: the prefix,
// the component encodings and an optional KeyFilter per component. Filters
// always intersect. Views can be sliced:
//
//   - AsViewN drops the target; the last value becomes the target and the
//     view switches to prefix mode, where one element may cover many keys.
//   - AsViewNWithPrefix fixes the first value to concrete encoded bytes.
//   - AsTupleKViewM merges the first K values into one tuple component and
//     folds their filters into a single EncodingsFilter.
//
// Slicing never re-encodes anything: it only moves byte boundaries.
//
// # Handles
//
// Index1..Index4 bind a view to a kv.Reader and typed encodings. AsSet
// walks every entry, AsMap groups targets by value and AsMapOfIndexN drills
// down one or more leading values at a time. All walks seek through the
// combined key filter of the view instead of testing every key.
//
// # Filtering
//
// EncodingsFilter checks each component against its own filter. Seeking
// forward splices the component filter's answer into the key, so a walk
// jumps straight to the next candidate. Seeking backward only jumps when a
// component filter proves the gap is empty; keys that do not decode are
// never skipped over.
package index
