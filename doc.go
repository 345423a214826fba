/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package gridbus is a reactive workbook engine with a remote control bus.
//
// A Workbook holds cells addressed in A1 notation.  A cell's content is
// either a literal or a formula (content starting with "=").  The Engine
// keeps every formula cell's cached value consistent with the current
// content of its transitive dependencies, re-evaluating dependents on
// every change and breaking cycles with an error value instead of
// looping.
//
// Formulas are evaluated by an embedded ECMAScript interpreter (see
// interpreters/goja).  The engine hands the interpreter the formula text
// and a callback that resolves cell references on demand.
//
// The protocol package defines a small, fixed command vocabulary
// (getCell, setCell, export, ...) over the workbook, and the bus package
// exposes that vocabulary to remote callers over interchangeable
// transports: an in-process message bus, a WebSocket service, an MQTT
// pairing, and an HTTP relay that a sandboxed host can reach via long
// polling.
package gridbus
