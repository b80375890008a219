// Package instrument provides the generic instrument, its identity descriptor
// and the manufacturer/model builder registry.
//
// An Instrument owns a transfer.Config and at most one attached visa.Session.
// Every I/O method requires an attached session and fails with ErrUnattached
// otherwise. Family capabilities such as Electrometer and Oscilloscope are
// separate interfaces that concrete drivers implement on top of *Base.
//
// Instruments are not safe for concurrent use, a device answers one request at a time.
package instrument
