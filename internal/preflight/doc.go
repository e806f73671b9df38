// Package preflight provides readiness checks for the external tools
// and filesystem paths a run depends on.
//
// These checks run in two contexts:
//   - The pipeline calls RunAll before staging anything and logs
//     failures as warnings. A missing tool still surfaces as a hard
//     error at invocation time; preflight just says so up front.
//   - The CLI "ballooncd tools" command uses CheckExternalTools to
//     display per-tool availability.
package preflight
