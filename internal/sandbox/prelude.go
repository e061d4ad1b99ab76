package sandbox

// basePrelude is ES5-compatible and shared by both backings: browser
// stand-ins, synchronous timers that return 0, and base-64 codecs.
const basePrelude = `
(function(root) {
	root.globalThis = root;
	root.window = root;
	root.self = root;

	root.console = {
		log: function() {}, info: function() {}, warn: function() {},
		error: function() {}, debug: function() {}, trace: function() {}
	};

	root.navigator = {
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		platform: "Linux x86_64",
		language: "en-US",
		languages: ["en-US", "en"],
		webdriver: false
	};

	root.location = {
		href: "https://localhost/",
		origin: "https://localhost",
		protocol: "https:",
		host: "localhost",
		hostname: "localhost",
		port: "",
		pathname: "/",
		search: "",
		hash: ""
	};

	root.document = {
		documentElement: {},
		createElement: function() { return {}; },
		getElementById: function() { return null; },
		querySelector: function() { return null; },
		addEventListener: function() {},
		removeEventListener: function() {},
		cookie: "",
		domain: "localhost",
		referrer: ""
	};

	function runNow(fn) {
		if (typeof fn === "function") {
			fn();
		}
		return 0;
	}
	root.setTimeout = runNow;
	root.setInterval = runNow;
	root.setImmediate = runNow;
	root.requestAnimationFrame = runNow;
	root.clearTimeout = function() {};
	root.clearInterval = function() {};
	root.clearImmediate = function() {};
	root.cancelAnimationFrame = function() {};

	var B64 = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/";

	root.atob = function(input) {
		var str = String(input).replace(/=+$/, "");
		var output = "";
		var bc = 0, bs = 0, buffer;
		for (var i = 0; i < str.length; i++) {
			buffer = B64.indexOf(str.charAt(i));
			if (buffer === -1) {
				continue;
			}
			bs = bc % 4 ? bs * 64 + buffer : buffer;
			if (bc++ % 4) {
				output += String.fromCharCode(255 & (bs >> ((-2 * bc) & 6)));
			}
		}
		return output;
	};

	root.btoa = function(input) {
		var str = String(input);
		var output = "";
		for (var i = 0; i < str.length; i += 3) {
			var a = str.charCodeAt(i);
			var b = str.charCodeAt(i + 1);
			var c = str.charCodeAt(i + 2);
			output += B64.charAt(a >> 2);
			output += B64.charAt(((a & 3) << 4) | (isNaN(b) ? 0 : b >> 4));
			output += isNaN(b) ? "=" : B64.charAt(((b & 15) << 2) | (isNaN(c) ? 0 : c >> 6));
			output += isNaN(b) || isNaN(c) ? "=" : B64.charAt(c & 63);
		}
		return output;
	};
})(this);
`

// gojaPrelude adds the ES6 pieces only the goja backing supports: a recursive
// permissive proxy for unknown names and the with-scope evaluation hook.
// Property reads, calls and constructions on a permissive value all yield
// fresh permissive values; "in" is always true; writes land on the global;
// string conversion is "" and numeric conversion 0.
const gojaPrelude = `
(function(root) {
	function permissive() {
		var target = function() {};
		return new Proxy(target, {
			get: function(t, key) {
				if (key === Symbol.toPrimitive) {
					return function(hint) { return hint === "number" ? 0 : ""; };
				}
				if (key === "toString") {
					return function() { return ""; };
				}
				if (key === "valueOf") {
					return function() { return 0; };
				}
				if (key === "length") {
					return 0;
				}
				return permissive();
			},
			has: function() { return true; },
			set: function() { return true; },
			apply: function() { return permissive(); },
			construct: function() { return permissive(); }
		});
	}

	var scope = new Proxy({}, {
		has: function() { return true; },
		get: function(t, key) {
			if (key === Symbol.unscopables) {
				return undefined;
			}
			if (key in root) {
				return root[key];
			}
			return permissive();
		},
		set: function(t, key, value) {
			root[key] = value;
			return true;
		}
	});

	root.__evaluate = function(__src) {
		return (function() {
			with (scope) {
				return eval(__src);
			}
		})();
	};
})(this);
`

// ottoPrelude wires the evaluation hook without the permissive scope; ES5
// hosts cannot trap unknown names, so fragments that probe absent globals
// fail as ordinary evaluation errors.
const ottoPrelude = `
this.__evaluate = function(__src) {
	return eval(__src);
};
`
