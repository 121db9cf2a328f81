package cli

import (
	"errors"
	"fmt"
	"io"

	"askai/provider"
)

// printError writes err for a human. AIAPIError messages are already
// translated; verbose adds the technical details.
func printError(w io.Writer, err error, verbose bool) {
	var apiErr *provider.AIAPIError
	if !errors.As(err, &apiErr) {
		fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+err.Error())
		return
	}

	fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+apiErr.Message)
	if !verbose {
		return
	}

	fmt.Fprintln(w, DimStyle.Render("  type:   "+apiErr.Type))
	if apiErr.StatusCode != 0 {
		fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("  status: %d", apiErr.StatusCode)))
	}
	if apiErr.Detail != "" && apiErr.Detail != apiErr.Message {
		fmt.Fprintln(w, DimStyle.Render("  detail: "+apiErr.Detail))
	}
}
