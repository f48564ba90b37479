// Package digitizer turns ionization steps into pad charges.
//
// For each step it converts the deposited energy into primary electrons,
// samples the avalanche gain and the drift-length fluctuation, spreads the
// charge as a Gaussian cloud and integrates that cloud over the pads near
// its centre. Charge and charge-weighted drift time accumulate per pad until
// the event is read out.
//
// A Digitizer is single-threaded. Parallel workers each own a Digitizer
// with a private accumulator and hit histogram; histograms are merged after
// the run (see the pipeline package).
//
// Key types: Digitizer, Config, IonizationStep, Readout, Summary.
package digitizer
