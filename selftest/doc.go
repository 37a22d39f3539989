// Package selftest cross-checks the interval algebra and the operator
// tables against exhaustive set models over small domains. It contains
// only tests.
package selftest
