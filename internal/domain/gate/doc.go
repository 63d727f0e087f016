// Package gate decides, once per tick, whether the sentinel emits a notification.
//
// A Policy is a pure decision over the armed flag, the previous and current
// alarm condition and the time elapsed since the last emission. Two policies
// exist: EdgeAndInterval emits on every transition and repeats while alarmed,
// LevelOnly only repeats while alarmed. Gate wraps a policy with the state that
// survives between ticks: the previous alarm condition and the emission baseline.
package gate
