// Package mapview derives everything a map backend draws from the
// platform-independent map props: the guide-line target, the initial
// viewport and the full overlay description.
//
// Every function here is pure. Backends call Describe on each state change
// and hand the whole result to their engine; nothing in this package tracks
// what was drawn before.
package mapview
