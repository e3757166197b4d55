// Package syncmgr drains the upload and interaction queues against the
// remote API. A drain runs on a timer, when connectivity returns, when the
// app comes to the foreground or on demand, and never twice at once.
package syncmgr
