// Package atfile converts between an outline subtree and a flat text file
// in which the outline structure is kept in comment lines called sentinels.
//
// A file looks like this (Python comment delimiters):
//
//	#@+leo-ver=5-thin
//	#@+node:ekr.20240101120000.1: * @file hello.py
//	#@@language python
//	#@+others
//	#@+node:ekr.20240101120000.2: ** greet
//	def greet():
//	    print("hello")
//	#@-others
//	#@-leo
//
// [Write] expands @others, section references and doc parts of the bodies
// and marks where each node starts. [Read] reverses it. Removing every
// sentinel line leaves the plain source; [StripSentinels] does that.
//
// [Copy] and [Paste] use the same format without expansion as a clipboard
// snapshot of a subtree. [Saver] adds encodings and atomic file
// replacement.
package atfile
