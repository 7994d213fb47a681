// Embedded WGSL kernel library. The whole library is compiled into a single
// shader module at backend construction and one compute pipeline is created
// per entry point; kernelNames lists every entry point the backend binds.
//
// Entry points may reuse binding slots because WGSL scopes resource bindings
// per entry point; each kernel family declares its own module-scope variables.
// Scalar arguments travel in one 16-byte-aligned uniform block per family.
package webgpu

// tileSize is the matmul workgroup extent per axis and the shared-memory
// tile edge. Tiled kernel variants are selected only when m, n and k all
// reach this size: below it the fixed tiling overhead outweighs the win.
const tileSize = 16

// elementwiseWorkgroupSize is the 1-D workgroup width for elementwise
// kernels. WebGPU launches whole workgroups, so these kernels bounds-check
// against the element count in their params block.
const elementwiseWorkgroupSize = 256

// kernelNames lists every kernel the backend creates a pipeline for.
// Missing any of them is a construction-time failure.
var kernelNames = []string{
	"element_wise_add",
	"element_wise_multiply",
	"scalar_multiply",
	"matmul",
	"matmul_tiled",
	"matmul_batched",
	"matmul_batched_tiled",
	"matmul_transposed",
	"matmul_transposed_tiled",
	"matmul_transposed_batched",
	"matmul_transposed_batched_tiled",
}

// kernelSource is the complete kernel library.
const kernelSource = elementwiseSource + scalarSource + matmulSource +
	matmulBatchedSource + matmulTransposedSource + matmulTransposedBatchedSource

// element_wise_add / element_wise_multiply: out = a (+|*) b.
const elementwiseSource = `
@group(0) @binding(0) var<storage, read> ew_a: array<f32>;
@group(0) @binding(1) var<storage, read> ew_b: array<f32>;
@group(0) @binding(2) var<storage, read_write> ew_out: array<f32>;

struct EwParams {
    size: u32,
}
@group(0) @binding(3) var<uniform> ew_params: EwParams;

@compute @workgroup_size(256)
fn element_wise_add(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if (i < ew_params.size) {
        ew_out[i] = ew_a[i] + ew_b[i];
    }
}

@compute @workgroup_size(256)
fn element_wise_multiply(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if (i < ew_params.size) {
        ew_out[i] = ew_a[i] * ew_b[i];
    }
}
`

// scalar_multiply: out = in * scalar.
const scalarSource = `
@group(0) @binding(0) var<storage, read> sc_in: array<f32>;
@group(0) @binding(1) var<storage, read_write> sc_out: array<f32>;

struct ScalarParams {
    scalar: f32,
    size: u32,
}
@group(0) @binding(2) var<uniform> sc_params: ScalarParams;

@compute @workgroup_size(256)
fn scalar_multiply(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if (i < sc_params.size) {
        sc_out[i] = sc_in[i] * sc_params.scalar;
    }
}
`

// matmul / matmul_tiled: C = A @ B with A [m, k], B [k, n], C [m, n].
// The tiled variant stages 16x16 blocks of both operands in workgroup memory.
const matmulSource = `
@group(0) @binding(0) var<storage, read> mm_a: array<f32>;
@group(0) @binding(1) var<storage, read> mm_b: array<f32>;
@group(0) @binding(2) var<storage, read_write> mm_out: array<f32>;

struct MatmulParams {
    m: u32,
    n: u32,
    k: u32,
}
@group(0) @binding(3) var<uniform> mm_params: MatmulParams;

@compute @workgroup_size(16, 16)
fn matmul(@builtin(global_invocation_id) gid: vec3<u32>) {
    let row = gid.y;
    let col = gid.x;
    if (row >= mm_params.m || col >= mm_params.n) {
        return;
    }

    var sum: f32 = 0.0;
    for (var kk: u32 = 0u; kk < mm_params.k; kk = kk + 1u) {
        sum = sum + mm_a[row * mm_params.k + kk] * mm_b[kk * mm_params.n + col];
    }
    mm_out[row * mm_params.n + col] = sum;
}

var<workgroup> mm_tile_a: array<f32, 256>;
var<workgroup> mm_tile_b: array<f32, 256>;

@compute @workgroup_size(16, 16)
fn matmul_tiled(@builtin(global_invocation_id) gid: vec3<u32>,
                @builtin(local_invocation_id) lid: vec3<u32>) {
    let row = gid.y;
    let col = gid.x;
    let m = mm_params.m;
    let n = mm_params.n;
    let k = mm_params.k;

    var sum: f32 = 0.0;
    let tiles = (k + 15u) / 16u;
    for (var t: u32 = 0u; t < tiles; t = t + 1u) {
        let a_col = t * 16u + lid.x;
        let b_row = t * 16u + lid.y;
        if (row < m && a_col < k) {
            mm_tile_a[lid.y * 16u + lid.x] = mm_a[row * k + a_col];
        } else {
            mm_tile_a[lid.y * 16u + lid.x] = 0.0;
        }
        if (b_row < k && col < n) {
            mm_tile_b[lid.y * 16u + lid.x] = mm_b[b_row * n + col];
        } else {
            mm_tile_b[lid.y * 16u + lid.x] = 0.0;
        }
        workgroupBarrier();
        for (var j: u32 = 0u; j < 16u; j = j + 1u) {
            sum = sum + mm_tile_a[lid.y * 16u + j] * mm_tile_b[j * 16u + lid.x];
        }
        workgroupBarrier();
    }
    if (row < m && col < n) {
        mm_out[row * n + col] = sum;
    }
}
`

// matmul_batched / matmul_batched_tiled: independent per-batch products,
// outputs concatenated batch-major; gid.z selects the batch.
const matmulBatchedSource = `
@group(0) @binding(0) var<storage, read> bm_a: array<f32>;
@group(0) @binding(1) var<storage, read> bm_b: array<f32>;
@group(0) @binding(2) var<storage, read_write> bm_out: array<f32>;

struct BatchedParams {
    m: u32,
    n: u32,
    k: u32,
    batch: u32,
}
@group(0) @binding(3) var<uniform> bm_params: BatchedParams;

@compute @workgroup_size(16, 16)
fn matmul_batched(@builtin(global_invocation_id) gid: vec3<u32>) {
    let row = gid.y;
    let col = gid.x;
    let bz = gid.z;
    let m = bm_params.m;
    let n = bm_params.n;
    let k = bm_params.k;
    if (row >= m || col >= n || bz >= bm_params.batch) {
        return;
    }

    let a_off = bz * m * k;
    let b_off = bz * k * n;
    var sum: f32 = 0.0;
    for (var kk: u32 = 0u; kk < k; kk = kk + 1u) {
        sum = sum + bm_a[a_off + row * k + kk] * bm_b[b_off + kk * n + col];
    }
    bm_out[bz * m * n + row * n + col] = sum;
}

var<workgroup> bm_tile_a: array<f32, 256>;
var<workgroup> bm_tile_b: array<f32, 256>;

@compute @workgroup_size(16, 16)
fn matmul_batched_tiled(@builtin(global_invocation_id) gid: vec3<u32>,
                        @builtin(local_invocation_id) lid: vec3<u32>) {
    let row = gid.y;
    let col = gid.x;
    let bz = gid.z;
    let m = bm_params.m;
    let n = bm_params.n;
    let k = bm_params.k;
    if (bz >= bm_params.batch) {
        return;
    }

    let a_off = bz * m * k;
    let b_off = bz * k * n;
    var sum: f32 = 0.0;
    let tiles = (k + 15u) / 16u;
    for (var t: u32 = 0u; t < tiles; t = t + 1u) {
        let a_col = t * 16u + lid.x;
        let b_row = t * 16u + lid.y;
        if (row < m && a_col < k) {
            bm_tile_a[lid.y * 16u + lid.x] = bm_a[a_off + row * k + a_col];
        } else {
            bm_tile_a[lid.y * 16u + lid.x] = 0.0;
        }
        if (b_row < k && col < n) {
            bm_tile_b[lid.y * 16u + lid.x] = bm_b[b_off + b_row * n + col];
        } else {
            bm_tile_b[lid.y * 16u + lid.x] = 0.0;
        }
        workgroupBarrier();
        for (var j: u32 = 0u; j < 16u; j = j + 1u) {
            sum = sum + bm_tile_a[lid.y * 16u + j] * bm_tile_b[j * 16u + lid.x];
        }
        workgroupBarrier();
    }
    if (row < m && col < n) {
        bm_out[bz * m * n + row * n + col] = sum;
    }
}
`

// matmul_transposed / matmul_transposed_tiled: C = op(A) @ op(B) where the
// transpose flags reinterpret the operand layouts (A stored [k, m] when ta,
// B stored [n, k] when tb) without materializing a transposed copy.
const matmulTransposedSource = `
@group(0) @binding(0) var<storage, read> tm_a: array<f32>;
@group(0) @binding(1) var<storage, read> tm_b: array<f32>;
@group(0) @binding(2) var<storage, read_write> tm_out: array<f32>;

struct TransposedParams {
    m: u32,
    n: u32,
    k: u32,
    ta: u32,
    tb: u32,
}
@group(0) @binding(3) var<uniform> tm_params: TransposedParams;

fn tm_a_at(row: u32, kk: u32) -> f32 {
    if (tm_params.ta != 0u) {
        return tm_a[kk * tm_params.m + row];
    }
    return tm_a[row * tm_params.k + kk];
}

fn tm_b_at(kk: u32, col: u32) -> f32 {
    if (tm_params.tb != 0u) {
        return tm_b[col * tm_params.k + kk];
    }
    return tm_b[kk * tm_params.n + col];
}

@compute @workgroup_size(16, 16)
fn matmul_transposed(@builtin(global_invocation_id) gid: vec3<u32>) {
    let row = gid.y;
    let col = gid.x;
    if (row >= tm_params.m || col >= tm_params.n) {
        return;
    }

    var sum: f32 = 0.0;
    for (var kk: u32 = 0u; kk < tm_params.k; kk = kk + 1u) {
        sum = sum + tm_a_at(row, kk) * tm_b_at(kk, col);
    }
    tm_out[row * tm_params.n + col] = sum;
}

var<workgroup> tm_tile_a: array<f32, 256>;
var<workgroup> tm_tile_b: array<f32, 256>;

@compute @workgroup_size(16, 16)
fn matmul_transposed_tiled(@builtin(global_invocation_id) gid: vec3<u32>,
                           @builtin(local_invocation_id) lid: vec3<u32>) {
    let row = gid.y;
    let col = gid.x;
    let m = tm_params.m;
    let n = tm_params.n;
    let k = tm_params.k;

    var sum: f32 = 0.0;
    let tiles = (k + 15u) / 16u;
    for (var t: u32 = 0u; t < tiles; t = t + 1u) {
        let a_col = t * 16u + lid.x;
        let b_row = t * 16u + lid.y;
        if (row < m && a_col < k) {
            tm_tile_a[lid.y * 16u + lid.x] = tm_a_at(row, a_col);
        } else {
            tm_tile_a[lid.y * 16u + lid.x] = 0.0;
        }
        if (b_row < k && col < n) {
            tm_tile_b[lid.y * 16u + lid.x] = tm_b_at(b_row, col);
        } else {
            tm_tile_b[lid.y * 16u + lid.x] = 0.0;
        }
        workgroupBarrier();
        for (var j: u32 = 0u; j < 16u; j = j + 1u) {
            sum = sum + tm_tile_a[lid.y * 16u + j] * tm_tile_b[j * 16u + lid.x];
        }
        workgroupBarrier();
    }
    if (row < m && col < n) {
        tm_out[row * n + col] = sum;
    }
}
`

// matmul_transposed_batched / matmul_transposed_batched_tiled: batched form
// of the transposed kernels; gid.z selects the batch.
const matmulTransposedBatchedSource = `
@group(0) @binding(0) var<storage, read> tb_a: array<f32>;
@group(0) @binding(1) var<storage, read> tb_b: array<f32>;
@group(0) @binding(2) var<storage, read_write> tb_out: array<f32>;

struct TransposedBatchedParams {
    m: u32,
    n: u32,
    k: u32,
    batch: u32,
    ta: u32,
    tb: u32,
}
@group(0) @binding(3) var<uniform> tb_params: TransposedBatchedParams;

fn tb_a_at(a_off: u32, row: u32, kk: u32) -> f32 {
    if (tb_params.ta != 0u) {
        return tb_a[a_off + kk * tb_params.m + row];
    }
    return tb_a[a_off + row * tb_params.k + kk];
}

fn tb_b_at(b_off: u32, kk: u32, col: u32) -> f32 {
    if (tb_params.tb != 0u) {
        return tb_b[b_off + col * tb_params.k + kk];
    }
    return tb_b[b_off + kk * tb_params.n + col];
}

@compute @workgroup_size(16, 16)
fn matmul_transposed_batched(@builtin(global_invocation_id) gid: vec3<u32>) {
    let row = gid.y;
    let col = gid.x;
    let bz = gid.z;
    let m = tb_params.m;
    let n = tb_params.n;
    let k = tb_params.k;
    if (row >= m || col >= n || bz >= tb_params.batch) {
        return;
    }

    let a_off = bz * m * k;
    let b_off = bz * k * n;
    var sum: f32 = 0.0;
    for (var kk: u32 = 0u; kk < k; kk = kk + 1u) {
        sum = sum + tb_a_at(a_off, row, kk) * tb_b_at(b_off, kk, col);
    }
    tb_out[bz * m * n + row * n + col] = sum;
}

var<workgroup> tb_tile_a: array<f32, 256>;
var<workgroup> tb_tile_b: array<f32, 256>;

@compute @workgroup_size(16, 16)
fn matmul_transposed_batched_tiled(@builtin(global_invocation_id) gid: vec3<u32>,
                                   @builtin(local_invocation_id) lid: vec3<u32>) {
    let row = gid.y;
    let col = gid.x;
    let bz = gid.z;
    let m = tb_params.m;
    let n = tb_params.n;
    let k = tb_params.k;
    if (bz >= tb_params.batch) {
        return;
    }

    let a_off = bz * m * k;
    let b_off = bz * k * n;
    var sum: f32 = 0.0;
    let tiles = (k + 15u) / 16u;
    for (var t: u32 = 0u; t < tiles; t = t + 1u) {
        let a_col = t * 16u + lid.x;
        let b_row = t * 16u + lid.y;
        if (row < m && a_col < k) {
            tb_tile_a[lid.y * 16u + lid.x] = tb_a_at(a_off, row, a_col);
        } else {
            tb_tile_a[lid.y * 16u + lid.x] = 0.0;
        }
        if (b_row < k && col < n) {
            tb_tile_b[lid.y * 16u + lid.x] = tb_b_at(b_off, b_row, col);
        } else {
            tb_tile_b[lid.y * 16u + lid.x] = 0.0;
        }
        workgroupBarrier();
        for (var j: u32 = 0u; j < 16u; j = j + 1u) {
            sum = sum + tb_tile_a[lid.y * 16u + j] * tb_tile_b[j * 16u + lid.x];
        }
        workgroupBarrier();
    }
    if (row < m && col < n) {
        tb_out[bz * m * n + row * n + col] = sum;
    }
}
`
