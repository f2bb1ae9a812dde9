// Package watch keeps a reflector.Holder current as schema sources change,
// driven by filesystem events or a cron schedule.
package watch
