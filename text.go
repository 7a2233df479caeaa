package main

var (
	RootLong = `folio serves a portfolio page: a header, a hero image, resume cards and
image galleries shown as circular carousels.

Images are referenced without committing to a file extension. Each reference
is probed against an ordered list of candidate extensions until one loads;
references that load with none of them are left in place and reported on the
admin dashboard.`

	ResolveLong = `Resolve a logical image reference against the images directory and print
the source that would be displayed, the extensions that failed on the way and
whether every candidate was exhausted.`

	PreviewLong = `Preview a gallery from the content file as a carousel in the terminal.
Use the arrow keys (or h/l) to move and q to quit. Type an item number to
jump to it; enter confirms a number that could still grow, as in 1 of 12.`
)
