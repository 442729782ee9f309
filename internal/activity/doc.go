// Package activity defines the strict internal form of a HackTheBox
// activity feed entry and the classification logic that decides, against
// a user's deduplication state, whether an entry counts as a new solve,
// a notification-only user flag, or a duplicate.
//
// Classification is a pure function: it never mutates state. The caller
// (the ledger) is responsible for applying the side effects each outcome
// dictates, atomically with the classification itself.
package activity
