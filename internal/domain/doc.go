// Package domain holds the immutable value types shared by the git
// collaborators, the diff engines and the application store. Nothing in
// here performs I/O.
package domain
