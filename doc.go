// Package relgraph holds the types shared by every relgraph package: the
// error taxonomy and the Lazy relationship member.
package relgraph
