// Package store holds the live alerts of one process.
//
// Store keeps every alert in two indices: a map keyed by AlertID and a slice
// in creation order. Creation timestamps never decrease within a Store and
// an insertion sequence number breaks ties, so the creation-order slice can
// be range-searched by time or by id.
//
// All operations are atomic with respect to each other. Iterators walk a
// snapshot taken when they were created; alerts committed later are not
// visible to them.
package store
