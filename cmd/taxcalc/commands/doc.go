// Package commands defines the taxcalc CLI.
//
// Commands
//
//   - compute   Print taxable income, income tax and GST for the given figures
//   - report    Write the plain-text tax report
//
// Both commands take the figures as flags, or read a stored form document
// with --file. Flags given explicitly override values from the file.
package commands
