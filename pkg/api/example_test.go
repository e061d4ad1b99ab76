package api_test

import (
	"fmt"
	"log"

	"github.com/tcortega/webcrack/pkg/api"
)

// Example demonstrates deobfuscating a string-array sample with the default
// auto-detected target.
func Example() {
	source := `var f = (function () { var A = ["hello", "world"]; return function (i) { return A[i]; }; })();
console.log(f(0) + " " + f(1));`

	result, err := api.Deobfuscate(source, api.Options{})
	if err != nil {
		log.Fatalf("deobfuscation failed: %v", err)
	}
	fmt.Println(result.Code)
	// Output: console.log("hello world");
}

// Example_explicitTarget forces the Abba pipeline instead of detection.
func Example_explicitTarget() {
	source := `var a = ["X", "Y", "Z"];
function b(d) { d = d - 0x10; return a[d]; }
use(b(0x11));`

	result, err := api.Deobfuscate(source, api.Options{Target: "abba"})
	if err != nil {
		log.Fatalf("deobfuscation failed: %v", err)
	}
	fmt.Println(result.Code)
	// Output: use("Y");
}
