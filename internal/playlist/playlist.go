package playlist

import (
	"fmt"
	"strings"

	"github.com/handiism/screen-recorder/internal/model"
)

// Format represents supported playlist file formats.
//
// Each format has different features and compatibility:
//   - M3U: Simple text format, widely supported
//   - PLS: INI-style format, used by Winamp and VLC
//   - WPL: XML format, Windows Media Player
type Format int

const (
	// FormatM3U creates .m3u files (most compatible).
	// Can be extended with EXTINF lines carrying the recording id.
	FormatM3U Format = iota

	// FormatPLS creates .pls files.
	FormatPLS

	// FormatWPL creates .wpl files.
	FormatWPL
)

// ParseFormat maps a format name ("m3u", "pls", "wpl") to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "m3u", "m3u8":
		return FormatM3U, nil
	case "pls":
		return FormatPLS, nil
	case "wpl":
		return FormatWPL, nil
	default:
		return 0, fmt.Errorf("unknown playlist format %q", name)
	}
}

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatPLS:
		return ".pls"
	case FormatWPL:
		return ".wpl"
	default:
		return ".m3u"
	}
}

// Creator generates playlists over recordings' retrieval addresses.
//
// Recordings without a resolved address are left out, since a player has
// nothing to open for them.
//
// Example:
//
//	creator := NewCreator(FormatM3U, true)
//	content := creator.Create("Screen recordings", recs)
//
//	// Result:
//	// #EXTM3U
//	// #EXTINF:-1,recording-0190f3a2-...
//	// http://localhost:8080/objects/recordings/recording-0190f3a2-....mp4
type Creator struct {
	format   Format
	extended bool // For M3U: include EXTINF lines
}

// NewCreator creates a new Creator. extended only affects FormatM3U.
func NewCreator(format Format, extended bool) *Creator {
	return &Creator{
		format:   format,
		extended: extended,
	}
}

// Create renders the playlist.
func (p *Creator) Create(title string, recs []model.Recording) string {
	entries := make([]model.Recording, 0, len(recs))
	for _, rec := range recs {
		if rec.HasAddress() {
			entries = append(entries, rec)
		}
	}

	switch p.format {
	case FormatPLS:
		return p.createPLS(entries)
	case FormatWPL:
		return p.createWPL(title, entries)
	default:
		return p.createM3U(entries)
	}
}

func (p *Creator) createM3U(recs []model.Recording) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}
	for _, rec := range recs {
		if p.extended {
			fmt.Fprintf(&sb, "#EXTINF:-1,%s\n", rec.ID)
		}
		sb.WriteString(rec.DownloadURL + "\n")
	}
	return sb.String()
}

// createPLS generates a PLS playlist:
//
//	[playlist]
//	File1=http://.../recording-1.mp4
//	Title1=recording-1
//	Length1=-1
//	NumberOfEntries=1
//	Version=2
func (p *Creator) createPLS(recs []model.Recording) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")
	for i, rec := range recs {
		idx := i + 1
		fmt.Fprintf(&sb, "File%d=%s\n", idx, rec.DownloadURL)
		fmt.Fprintf(&sb, "Title%d=%s\n", idx, rec.ID)
		fmt.Fprintf(&sb, "Length%d=-1\n", idx)
	}
	fmt.Fprintf(&sb, "NumberOfEntries=%d\n", len(recs))
	sb.WriteString("Version=2\n")

	return sb.String()
}

func (p *Creator) createWPL(title string, recs []model.Recording) string {
	var sb strings.Builder

	sb.WriteString("<?wpl version=\"1.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", escapeXML(title))
	fmt.Fprintf(&sb, "    <meta name=\"ItemCount\" content=\"%d\"/>\n", len(recs))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")
	for _, rec := range recs {
		fmt.Fprintf(&sb, "      <media src=\"%s\"/>\n", escapeXML(rec.DownloadURL))
	}
	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

// escapeXML escapes & < > " ' for attribute and text content.
func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)
