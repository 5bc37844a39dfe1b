// Package codec decodes realtime text frames into typed messages.
//
// Every frame is a JSON object {"type": string, "payload"?: object}.
// Decode checks the envelope and converts known kinds into concrete
// variants. Kinds it does not know come back as Unrecognized so callers
// can ignore them without treating them as faults.
package codec
