// Package ir provides the in-memory representation of JSON documents.
//
// A document is a tree of [Node] values. The IR is a recursive tagged
// union: the Type field says which of the other fields carry the value.
//
//   - NullType: no value fields
//   - BoolType: Bool
//   - NumberType: Number (raw text), with Int64/Float64 caches when the
//     text is representable
//   - StringType: String
//   - ArrayType: Values
//   - ObjectType: Keys and Values, where Keys[i] names Values[i]
//
// Objects preserve the key order of the input document. Numbers keep
// their source text so that re-encoding a document does not perturb
// values the engine never touched.
package ir
