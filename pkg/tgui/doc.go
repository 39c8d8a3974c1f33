// Package tgui renders Telegram HTML messages and inline keyboards.
//
// Builder escapes text by default; values of type H are already escaped.
// Callback data follows "namespace:action:payload" and must fit in 64 bytes.
package tgui
