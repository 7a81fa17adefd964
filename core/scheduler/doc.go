// Package scheduler contains the outer driver loop of the simulation. On every
// tick it detects time period changes, forwards them to each agency and then
// runs one dispatcher pass per agency.
package scheduler
