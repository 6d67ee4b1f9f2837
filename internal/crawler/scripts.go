package crawler

// Element-scoped scripts run with `this` bound to the element

const clickScript = `() => { this.click(); }`

const scrollIntoViewScript = `() => { this.scrollIntoView({ behavior: 'smooth', block: 'center' }); }`

// frameAccessScript reports whether the embedding document may read the
// iframe's content, the same check a same-origin script hits
const frameAccessScript = `() => {
	try {
		return this.contentDocument !== null;
	} catch (e) {
		return false;
	}
}`

const snapshotScript = `() => document.body ? document.body.innerHTML : ''`

// interactiveElementsScript lists clickable or scrollable targets with a
// selector that can be used in a macro step
const interactiveElementsScript = `() => {
	const elements = [];
	const seen = new Set();

	function isValidIdent(s) {
		if (!s || s.length === 0) return false;
		if (/^-?[0-9]/.test(s)) return false;
		if (/[.:#\[\]()>~+*\/\\\s]/.test(s)) return false;
		return true;
	}

	function selectorFor(el) {
		if (el.id && isValidIdent(el.id)) return '#' + el.id;
		if (el.name) return el.tagName.toLowerCase() + '[name="' + el.name + '"]';

		if (el.className && typeof el.className === 'string') {
			const classes = el.className.trim().split(/\s+/).filter(isValidIdent).slice(0, 2);
			if (classes.length > 0) {
				const sel = el.tagName.toLowerCase() + '.' + classes.join('.');
				try {
					if (document.querySelectorAll(sel).length === 1) return sel;
				} catch (e) {}
			}
		}

		const parent = el.parentElement;
		if (parent && parent !== document.documentElement) {
			const index = Array.from(parent.children).indexOf(el) + 1;
			return selectorFor(parent) + ' > ' + el.tagName.toLowerCase() + ':nth-child(' + index + ')';
		}
		return el.tagName.toLowerCase();
	}

	function add(el, type) {
		if (!el.offsetParent && el.tagName !== 'BODY') return;
		const selector = selectorFor(el);
		if (seen.has(selector)) return;
		seen.add(selector);
		elements.push({
			selector: selector,
			type: type,
			text: (el.textContent || el.value || '').trim().replace(/\s+/g, ' ').slice(0, 50)
		});
	}

	document.querySelectorAll('button, [role="button"], input[type="submit"], input[type="button"]').forEach(el => add(el, 'button'));
	document.querySelectorAll('a[href]').forEach(el => add(el, 'link'));
	document.querySelectorAll('input[type="checkbox"], input[type="radio"]').forEach(el => add(el, el.type));
	document.querySelectorAll('main, article, section, table, [role="main"]').forEach(el => add(el, 'region'));
	document.querySelectorAll('iframe').forEach(el => add(el, 'iframe'));

	return elements;
}`
