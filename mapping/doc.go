/*
Package mapping classifies OSM ways by their tags.

A way resolves to zero or more Roles. Each Role selects one geometry
synthesizer. The rules are evaluated in a fixed order, see rules in
classify.go. Rules of the same family exclude each other (only the first
linear key produces a LinearFeature), rules of different families can match
together (a fence around a forest is both Barrier and Natural).

Feature toggles disable whole groups of rules. Toggles are read once per
import.
*/
package mapping
