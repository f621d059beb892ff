package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/core/ports/driving"
)

// resolve looks an object up by path when ref starts with "/", by id
// otherwise.
func resolve(ctx context.Context, conn driving.Connection, ref string) (*domain.CmisObject, error) {
	if strings.HasPrefix(ref, "/") {
		return conn.GetObjectByPath(ctx, ref)
	}
	return conn.GetObject(ctx, ref)
}

// resolveID is resolve for commands that only need the object id.
func resolveID(ctx context.Context, conn driving.Connection, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	obj, err := resolve(ctx, conn, ref)
	if err != nil {
		return "", err
	}
	return obj.ID, nil
}

// parseProperties converts key=value pairs into properties of typeID.
// Repeating a key of a multi-valued property adds values.
func parseProperties(ctx context.Context, conn driving.Connection, typeID string, pairs []string) (domain.Properties, error) {
	props := domain.Properties{}
	if len(pairs) == 0 {
		return props, nil
	}
	def, err := conn.GetTypeDefinition(ctx, typeID)
	if err != nil {
		return nil, err
	}
	for _, pair := range pairs {
		id, raw, ok := strings.Cut(pair, "=")
		if !ok || id == "" {
			return nil, domain.InvalidArgumentf("property %q must be key=value", pair)
		}
		pd := def.PropertyDefinition(id)
		if pd == nil {
			return nil, domain.InvalidArgumentf("type %s has no property %s", typeID, id)
		}
		v, err := parseValue(pd.Type, raw)
		if err != nil {
			return nil, domain.InvalidArgumentf("property %s: %v", id, err)
		}
		p, exists := props[id]
		if !exists {
			p = domain.Property{ID: id, Type: pd.Type}
		} else if pd.Cardinality != domain.CardinalityMulti {
			return nil, domain.InvalidArgumentf("property %s is single-valued", id)
		}
		p.Values = append(p.Values, v)
		props[id] = p
	}
	return props, nil
}

func parseValue(t domain.PropertyType, raw string) (any, error) {
	switch t {
	case domain.PropertyTypeBoolean:
		return strconv.ParseBool(raw)
	case domain.PropertyTypeInteger:
		return strconv.ParseInt(raw, 10, 64)
	case domain.PropertyTypeDecimal:
		return strconv.ParseFloat(raw, 64)
	case domain.PropertyTypeDateTime:
		return time.Parse(time.RFC3339, raw)
	default:
		return raw, nil
	}
}

// readContent loads a local file, or stdin for "-", as a content stream.
func readContent(cmd *cobra.Command, path, mimeType string) (*domain.ContentStream, error) {
	var (
		data []byte
		err  error
		name = filepath.Base(path)
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
		name = "stdin"
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	if mimeType == "" {
		mimeType = detectMimeType(name, data)
	}
	return &domain.ContentStream{FileName: name, MimeType: mimeType, Data: data}, nil
}

func detectMimeType(name string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

func objectInput(parentID, typeID, name string, props domain.Properties) domain.ObjectInput {
	props[domain.PropObjectTypeID] = domain.NewIDProperty(domain.PropObjectTypeID, typeID)
	props[domain.PropName] = domain.NewStringProperty(domain.PropName, name)
	return domain.ObjectInput{ParentID: parentID, Properties: props}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// printObjects prints one line per object: name, type, id and version
// label for documents.
func printObjects(cmd *cobra.Command, objs []*domain.CmisObject) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, o := range objs {
		name := truncate(o.Name(), nameWidth(cmd))
		if o.BaseType == domain.BaseTypeFolder {
			name += "/"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, o.TypeID, o.ID, o.VersionLabel())
	}
	_ = w.Flush()
}

// printObject prints every property of obj, sorted by id.
func printObject(cmd *cobra.Command, obj *domain.CmisObject) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, id := range sortedPropertyIDs(obj.Properties) {
		p := obj.Properties[id]
		fmt.Fprintf(w, "%s\t%s\n", id, formatValues(p))
	}
	if len(obj.PolicyIDs) > 0 {
		fmt.Fprintf(w, "policies\t%s\n", strings.Join(obj.PolicyIDs, ", "))
	}
	for _, r := range obj.Renditions {
		fmt.Fprintf(w, "rendition\t%s %s (%s)\n", r.StreamID, r.Kind, r.MimeType)
	}
	_ = w.Flush()
}

func sortedPropertyIDs(props domain.Properties) []string {
	ids := make([]string, 0, len(props))
	for id := range props {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func formatValues(p domain.Property) string {
	parts := make([]string, 0, len(p.Values))
	for _, v := range p.Values {
		if t, ok := v.(time.Time); ok {
			parts = append(parts, t.Format(time.RFC3339))
			continue
		}
		parts = append(parts, fmt.Sprint(v))
	}
	return strings.Join(parts, ", ")
}

// nameWidth limits names to a third of the terminal; zero means unlimited.
func nameWidth(cmd *cobra.Command) int {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width < 40 {
		return 0
	}
	return width / 3
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// confirm asks a yes/no question on an interactive terminal. Without a
// terminal it fails so scripts must pass --yes.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false, fmt.Errorf("%s: refusing without --yes on a non-interactive input", question)
	}
	cmd.Printf("%s [y/N]: ", question)
	answer, _ := bufio.NewReader(f).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
